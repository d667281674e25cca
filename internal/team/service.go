// Package team はチームメンバー一覧のドメインロジックを提供する。
package team

import (
	"context"
	"fmt"

	"github.com/hitoshi/taskshare/internal/model"
	"github.com/hitoshi/taskshare/internal/repository"
)

// Service はチームメンバー一覧のサービス層。
// このシステムは単一チームのみを扱うため、全ユーザーがメンバーとなる。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// ListMembers は全チームメンバーを表示名の昇順で返す。
// タスク作成フォームの担当者選択に使用する。
func (s *Service) ListMembers(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("チームメンバー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}
