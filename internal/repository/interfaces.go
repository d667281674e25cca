// Package repository はデータ永続化のインターフェースを定義する。
// PostgreSQL実装とインメモリ実装の2種類があり、起動時にどちらか一方を選択して
// 全コンポーネントに注入する。グローバル状態としてのアクセスは行わない。
package repository

import (
	"context"

	"github.com/hitoshi/taskshare/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGoogleID はGoogleの外部IDでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザーを作成する。
	// email / google_id の一意制約違反の場合はErrDuplicateUserでラップしたエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// ListAll は全ユーザーを表示名の昇順で返す。
	ListAll(ctx context.Context) ([]*model.User, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
// ビジネスルールは持たない受動的なストアであり、アクセス制御はサービス層が行う。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// Create はタスクを作成する。
	// IDが空の場合は新規IDを割り当て、StatusとCreatedAtが未設定の場合はデフォルト値を補う。
	Create(ctx context.Context, task *model.Task) (*model.Task, error)

	// Update は指定IDのタスクを部分更新し、更新後のレコードを返す。
	// ID・CreatedAt・CreatedByIDは決して変更しない。見つからない場合はnilを返す。
	Update(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error)

	// Delete は指定IDのタスクを削除する。対象が存在しない場合もエラーにしない（冪等）。
	Delete(ctx context.Context, id string) error

	// ListAssignedTo は指定ユーザーが担当するタスクをcreated_at降順で返す。
	ListAssignedTo(ctx context.Context, userID string) ([]*model.Task, error)

	// ListDelegatedBy は指定ユーザーが作成し他人に割り当てたタスクをcreated_at降順で返す。
	ListDelegatedBy(ctx context.Context, userID string) ([]*model.Task, error)

	// ListCompletedFor は指定ユーザーが担当する完了済みタスクをcreated_at降順で返す。
	ListCompletedFor(ctx context.Context, userID string) ([]*model.Task, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
