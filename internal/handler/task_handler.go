package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/taskshare/internal/middleware"
	"github.com/hitoshi/taskshare/internal/model"
	"github.com/hitoshi/taskshare/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// ListOwned は実行者が担当するタスク一覧を返す。
	ListOwned(ctx context.Context, actorID string) ([]*model.Task, error)
	// ListDelegated は実行者が他人に割り当てたタスク一覧を返す。
	ListDelegated(ctx context.Context, actorID string) ([]*model.Task, error)
	// ListHistory は実行者が担当する完了済みタスク一覧を返す。
	ListHistory(ctx context.Context, actorID string) ([]*model.Task, error)
	// Create はタスクを作成する。
	Create(ctx context.Context, actorID string, input task.CreateInput) (*model.Task, error)
	// Update はタスクを部分更新する。
	Update(ctx context.Context, actorID, taskID string, patch model.TaskPatch) (*model.Task, error)
	// Delete はタスクを削除する。
	Delete(ctx context.Context, actorID, taskID string) error
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

// createTaskRequest はタスク作成リクエストのボディ。
// created_by_idは受け取らない。送られてきても無視される。
type createTaskRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"due_date"`
	AssignedToID string     `json:"assigned_to_id"`
}

// updateTaskRequest はタスク更新リクエストのボディ。
// nilのフィールドは変更しない。
type updateTaskRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	DueDate      *time.Time `json:"due_date"`
	AssignedToID *string    `json:"assigned_to_id"`
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"due_date"`
	CreatedAt    time.Time  `json:"created_at"`
	CreatedByID  string     `json:"created_by_id"`
	AssignedToID string     `json:"assigned_to_id"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListOwned は実行者が担当するタスク一覧を返す。
// GET /api/tasks
func (h *TaskHandler) ListOwned(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListOwned)
}

// ListDelegated は実行者が他人に割り当てたタスク一覧を返す。
// GET /api/tasks/assigned
func (h *TaskHandler) ListDelegated(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListDelegated)
}

// ListHistory は実行者が担当する完了済みタスク一覧を返す。
// GET /api/tasks/history
func (h *TaskHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListHistory)
}

// list は3つのビューに共通する一覧処理。
func (h *TaskHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, actorID string) ([]*model.Task, error),
) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	tasks, err := fn(r.Context(), actorID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponses(tasks))
}

// Create はタスクを作成する。
// POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	created, err := h.service.Create(r.Context(), actorID, task.CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toTaskResponse(created))
}

// Update はタスクを部分更新する。
// PUT /api/tasks/:id
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(taskID); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTaskIDError(taskID))
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	patch := model.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
	}
	if req.Status != nil {
		status := model.TaskStatus(*req.Status)
		patch.Status = &status
	}

	updated, err := h.service.Update(r.Context(), actorID, taskID, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(updated))
}

// Delete はタスクを削除する。
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(taskID); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTaskIDError(taskID))
		return
	}

	if err := h.service.Delete(r.Context(), actorID, taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toTaskResponse はmodel.TaskからAPIレスポンスに変換する。
func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		DueDate:      t.DueDate,
		CreatedAt:    t.CreatedAt,
		CreatedByID:  t.CreatedByID,
		AssignedToID: t.AssignedToID,
	}
}

// toTaskResponses はタスクのスライスをAPIレスポンスに変換する。
// タスクが0件でもnullではなく空配列を返す。
func toTaskResponses(tasks []*model.Task) []taskResponse {
	responses := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		responses = append(responses, toTaskResponse(t))
	}
	return responses
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidTaskData, model.ErrCodeInvalidTaskID, model.ErrCodeAssigneeNotFound:
		return http.StatusBadRequest
	case model.ErrCodeTaskNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeTaskForbidden, model.ErrCodeDomainNotAllowed:
		return http.StatusForbidden
	case model.ErrCodeMissingEmail:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
