// Package task はタスクのアクセス制御とライフサイクルのドメインロジックを提供する。
//
// 認可ルール:
//   - 作成: 認証済みユーザーなら誰でも可。作成者IDはサーバー側で必ず実行者のIDに上書きする。
//   - 更新: 作成者または現在の担当者のみ。
//   - 削除: 作成者のみ。
//
// 3つの派生ビュー（担当・委任・履歴）もこのパッケージが定義する。
// ステータス遷移に制限はなく、任意のステータスから任意のステータスへ変更できる。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/taskshare/internal/model"
	"github.com/hitoshi/taskshare/internal/repository"
)

// TextSanitizer はタスクのタイトル・説明文のサニタイズに必要なインターフェース。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder はタスク操作のメトリクス記録に必要なインターフェース。
type MetricsRecorder interface {
	RecordTaskCreated()
	RecordTaskCompleted()
	RecordTaskDeleted()
}

// Service はタスク管理のサービス層。
// アクセス制御・入力検証・ビュー計算を担い、永続化はTaskRepositoryに委譲する。
type Service struct {
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	sanitizer TextSanitizer
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizerとmetricsはnilを許容する（テスト・ローカル実行用）。
func NewService(
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	sanitizer TextSanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// CreateInput はタスク作成の入力を表す。
// クライアントが送ってきたcreated_by_idは受け取らない。実行者のIDが
// サーバー側で作成者として設定される。
type CreateInput struct {
	Title        string
	Description  string
	Status       string // 空の場合はpending
	DueDate      *time.Time
	AssignedToID string
}

// ListOwned は実行者が担当するタスク（ステータス不問）をcreated_at降順で返す。
func (s *Service) ListOwned(ctx context.Context, actorID string) ([]*model.Task, error) {
	tasks, err := s.taskRepo.ListAssignedTo(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("担当タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// ListDelegated は実行者が作成し他人に割り当てたタスクをcreated_at降順で返す。
// 自分用タスク（作成者 == 担当者）はこのビューには決して現れない。
func (s *Service) ListDelegated(ctx context.Context, actorID string) ([]*model.Task, error) {
	tasks, err := s.taskRepo.ListDelegatedBy(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("委任タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// ListHistory は実行者が担当する完了済みタスクをcreated_at降順で返す。
// 常にListOwnedの部分集合になる。
func (s *Service) ListHistory(ctx context.Context, actorID string) ([]*model.Task, error) {
	tasks, err := s.taskRepo.ListCompletedFor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("完了タスク履歴の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// Create はタスクを作成する。認証済みユーザーなら誰でも実行できる。
// 作成者IDはクライアントの主張にかかわらず実行者のIDで上書きする。
// タイトルが空、または担当者が存在しない場合は検証エラーを返す。
func (s *Service) Create(ctx context.Context, actorID string, input CreateInput) (*model.Task, error) {
	title := s.sanitize(input.Title)
	description := s.sanitize(input.Description)

	if title == "" {
		return nil, model.NewInvalidTaskDataError("title")
	}
	if input.AssignedToID == "" {
		return nil, model.NewInvalidTaskDataError("assigned_to_id")
	}
	if input.Status != "" && !model.IsValidTaskStatus(input.Status) {
		return nil, model.NewInvalidTaskDataError("status")
	}

	assignee, err := s.userRepo.FindByID(ctx, input.AssignedToID)
	if err != nil {
		return nil, fmt.Errorf("担当者の検証に失敗しました: %w", err)
	}
	if assignee == nil {
		return nil, model.NewAssigneeNotFoundError(input.AssignedToID)
	}

	task := &model.Task{
		Title:        title,
		Description:  description,
		Status:       model.TaskStatus(input.Status),
		DueDate:      input.DueDate,
		CreatedByID:  actorID, // クライアント指定値は信用しない
		AssignedToID: input.AssignedToID,
	}

	created, err := s.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCreated()
	}

	slog.Info("task created",
		slog.String("task_id", created.ID),
		slog.String("created_by", created.CreatedByID),
		slog.String("assigned_to", created.AssignedToID),
	)

	return created, nil
}

// Update はタスクを部分更新する。
// 実行者が作成者でも現在の担当者でもない場合はTASK_FORBIDDEN、
// タスクが存在しない場合はTASK_NOT_FOUNDを返す。
// パッチに含まれる担当者は既存ユーザーでなければならない。
// ステータス遷移に制限はない（completed→pendingも可）。
func (s *Service) Update(ctx context.Context, actorID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	existing, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewTaskNotFoundError()
	}

	if existing.CreatedByID != actorID && existing.AssignedToID != actorID {
		return nil, model.NewTaskForbiddenError()
	}

	if patch.Title != nil {
		title := s.sanitize(*patch.Title)
		if title == "" {
			return nil, model.NewInvalidTaskDataError("title")
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		description := s.sanitize(*patch.Description)
		patch.Description = &description
	}
	if patch.Status != nil && !model.IsValidTaskStatus(string(*patch.Status)) {
		return nil, model.NewInvalidTaskDataError("status")
	}
	if patch.AssignedToID != nil {
		assignee, err := s.userRepo.FindByID(ctx, *patch.AssignedToID)
		if err != nil {
			return nil, fmt.Errorf("担当者の検証に失敗しました: %w", err)
		}
		if assignee == nil {
			return nil, model.NewAssigneeNotFoundError(*patch.AssignedToID)
		}
	}

	updated, err := s.taskRepo.Update(ctx, taskID, patch)
	if err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	if updated == nil {
		// 認可チェック後に削除された場合
		return nil, model.NewTaskNotFoundError()
	}

	if s.metrics != nil && patch.Status != nil &&
		*patch.Status == model.TaskStatusCompleted && existing.Status != model.TaskStatusCompleted {
		s.metrics.RecordTaskCompleted()
	}

	slog.Info("task updated",
		slog.String("task_id", updated.ID),
		slog.String("actor_id", actorID),
		slog.String("status", string(updated.Status)),
	)

	return updated, nil
}

// Delete はタスクを削除する。作成者のみ実行できる。
// タスクが存在しない場合はTASK_NOT_FOUND、実行者が作成者でない場合はTASK_FORBIDDENを返す。
// 存在確認を先に行うため、リポジトリのDeleteが冪等であることに依存してよい。
func (s *Service) Delete(ctx context.Context, actorID, taskID string) error {
	existing, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return model.NewTaskNotFoundError()
	}

	if existing.CreatedByID != actorID {
		return model.NewTaskForbiddenError()
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskDeleted()
	}

	slog.Info("task deleted",
		slog.String("task_id", taskID),
		slog.String("actor_id", actorID),
	)

	return nil
}

// sanitize はテキストからHTMLを除去する。sanitizer未設定の場合はそのまま返す。
func (s *Service) sanitize(raw string) string {
	if s.sanitizer == nil {
		return raw
	}
	return s.sanitizer.Sanitize(raw)
}
