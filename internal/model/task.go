package model

import "time"

// TaskStatus はタスクのステータスを表す。
type TaskStatus string

const (
	// TaskStatusPending は未着手のタスクを示す。作成時のデフォルト。
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress は作業中のタスクを示す。
	TaskStatusInProgress TaskStatus = "in-progress"
	// TaskStatusCompleted は完了したタスクを示す。
	TaskStatusCompleted TaskStatus = "completed"
)

// IsValidTaskStatus はステータス文字列が定義済みの値かどうかを判定する。
func IsValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// Task はチームで共有するタスクを表す。
// CreatedByIDとAssignedToIDは常に既存ユーザーを参照する（参照整合性はリポジトリ境界で保証する）。
// CreatedByID == AssignedToID のタスクは自分用タスクで、委任ビューには決して現れない。
type Task struct {
	ID           string
	Title        string
	Description  string
	Status       TaskStatus
	DueDate      *time.Time // 期限（カレンダー日付）。未設定の場合はnil。
	CreatedAt    time.Time
	CreatedByID  string
	AssignedToID string
}

// TaskPatch はタスクの部分更新を表す。
// nilのフィールドは変更しない。ID・CreatedAt・CreatedByIDは更新対象外。
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	DueDate      *time.Time
	AssignedToID *string
}
