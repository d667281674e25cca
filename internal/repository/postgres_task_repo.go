package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskshare/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

const taskColumns = `id, title, description, status, due_date, created_at, created_by_id, assigned_to_id`

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`,
		id,
	)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}

	return task, nil
}

// Create はタスクを作成する。
// IDが空の場合は新規IDを割り当て、StatusとCreatedAtが未設定の場合はデフォルト値を補う。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	created := *task
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.Status == "" {
		created.Status = model.TaskStatusPending
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}

	var description any
	if created.Description != "" {
		description = created.Description
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, due_date, created_at, created_by_id, assigned_to_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		created.ID, created.Title, description, created.Status,
		created.DueDate, created.CreatedAt, created.CreatedByID, created.AssignedToID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return &created, nil
}

// Update は指定IDのタスクを部分更新し、更新後のレコードを返す。
// ID・CreatedAt・CreatedByIDはSET句に含めないため決して変更されない。
// 見つからない場合はnilを返す。
func (r *PostgresTaskRepo) Update(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE tasks SET
		     title          = COALESCE($2, title),
		     description    = COALESCE($3, description),
		     status         = COALESCE($4, status),
		     due_date       = COALESCE($5, due_date),
		     assigned_to_id = COALESCE($6, assigned_to_id)
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, patch.Title, patch.Description, (*string)(patch.Status), patch.DueDate, patch.AssignedToID,
	)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// Delete は指定IDのタスクを削除する。対象が存在しない場合もエラーにしない（冪等）。
func (r *PostgresTaskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ListAssignedTo は指定ユーザーが担当するタスクをcreated_at降順で返す。
func (r *PostgresTaskRepo) ListAssignedTo(ctx context.Context, userID string) ([]*model.Task, error) {
	return r.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE assigned_to_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
}

// ListDelegatedBy は指定ユーザーが作成し他人に割り当てたタスクをcreated_at降順で返す。
func (r *PostgresTaskRepo) ListDelegatedBy(ctx context.Context, userID string) ([]*model.Task, error) {
	return r.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE created_by_id = $1 AND assigned_to_id <> $1
		 ORDER BY created_at DESC`,
		userID,
	)
}

// ListCompletedFor は指定ユーザーが担当する完了済みタスクをcreated_at降順で返す。
func (r *PostgresTaskRepo) ListCompletedFor(ctx context.Context, userID string) ([]*model.Task, error) {
	return r.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE assigned_to_id = $1 AND status = $2
		 ORDER BY created_at DESC`,
		userID, string(model.TaskStatusCompleted),
	)
}

// listTasks はクエリを実行して全行をスキャンする共通処理。
func (r *PostgresTaskRepo) listTasks(ctx context.Context, query string, args ...any) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの両方を受け付けるための抽象化。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask は1行をmodel.Taskに変換する。
func scanTask(row rowScanner) (*model.Task, error) {
	task := &model.Task{}
	var description sql.NullString
	var dueDate sql.NullTime
	err := row.Scan(
		&task.ID, &task.Title, &description, &task.Status,
		&dueDate, &task.CreatedAt, &task.CreatedByID, &task.AssignedToID,
	)
	if err != nil {
		return nil, err
	}
	task.Description = description.String
	if dueDate.Valid {
		due := dueDate.Time
		task.DueDate = &due
	}
	return task, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
