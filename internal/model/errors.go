// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, task, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInvalidTaskData  = "INVALID_TASK_DATA"
	ErrCodeInvalidTaskID    = "INVALID_TASK_ID"
	ErrCodeTaskNotFound     = "TASK_NOT_FOUND"
	ErrCodeTaskForbidden    = "TASK_FORBIDDEN"
	ErrCodeAssigneeNotFound = "ASSIGNEE_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeMissingEmail     = "MISSING_EMAIL"
	ErrCodeDomainNotAllowed = "DOMAIN_NOT_ALLOWED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidTaskDataError はタスクの入力値検証エラーを生成する。
// fieldsには問題のあったフィールド名を指定する。
func NewInvalidTaskDataError(fields string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTaskData,
		Message:  fmt.Sprintf("タスクの入力内容が不正です: %s", fields),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidTaskIDError は不正なタスクIDエラーを生成する。
func NewInvalidTaskIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTaskID,
		Message:  fmt.Sprintf("無効なタスクIDです: %s", id),
		Category: "validation",
		Action:   "タスクIDを確認してください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
// 存在しない理由は開示しない。
func NewTaskNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  "指定されたタスクが見つかりません。",
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewTaskForbiddenError は権限不足エラーを生成する。
// タスクの内容は一切含めない。
func NewTaskForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeTaskForbidden,
		Message:  "このタスクを操作する権限がありません。",
		Category: "auth",
		Action:   "タスクの作成者または担当者に依頼してください。",
	}
}

// NewAssigneeNotFoundError は担当者未解決エラーを生成する。
func NewAssigneeNotFoundError(assigneeID string) *APIError {
	return &APIError{
		Code:     ErrCodeAssigneeNotFound,
		Message:  fmt.Sprintf("指定された担当者が見つかりません: %s", assigneeID),
		Category: "validation",
		Action:   "チームメンバー一覧から担当者を選択してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewMissingEmailError はIdPからメールアドレスが取得できなかった場合のエラーを生成する。
func NewMissingEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingEmail,
		Message:  "Googleアカウントからメールアドレスを取得できませんでした。",
		Category: "auth",
		Action:   "メールアドレスが公開されているGoogleアカウントでログインしてください。",
	}
}

// NewDomainNotAllowedError は許可ドメイン外のアカウントによるログインエラーを生成する。
func NewDomainNotAllowedError(domain string) *APIError {
	return &APIError{
		Code:     ErrCodeDomainNotAllowed,
		Message:  fmt.Sprintf("このワークスペースでは %s ドメインのアカウントのみ利用できます。", domain),
		Category: "auth",
		Action:   "組織のGoogleアカウントでログインしてください。",
	}
}
