package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskshare/internal/middleware"
	"github.com/hitoshi/taskshare/internal/model"
	"github.com/hitoshi/taskshare/internal/task"
)

// mockTaskService はTaskServiceInterfaceのモック実装。
type mockTaskService struct {
	listOwnedFn     func(ctx context.Context, actorID string) ([]*model.Task, error)
	listDelegatedFn func(ctx context.Context, actorID string) ([]*model.Task, error)
	listHistoryFn   func(ctx context.Context, actorID string) ([]*model.Task, error)
	createFn        func(ctx context.Context, actorID string, input task.CreateInput) (*model.Task, error)
	updateFn        func(ctx context.Context, actorID, taskID string, patch model.TaskPatch) (*model.Task, error)
	deleteFn        func(ctx context.Context, actorID, taskID string) error
}

func (m *mockTaskService) ListOwned(ctx context.Context, actorID string) ([]*model.Task, error) {
	return m.listOwnedFn(ctx, actorID)
}

func (m *mockTaskService) ListDelegated(ctx context.Context, actorID string) ([]*model.Task, error) {
	return m.listDelegatedFn(ctx, actorID)
}

func (m *mockTaskService) ListHistory(ctx context.Context, actorID string) ([]*model.Task, error) {
	return m.listHistoryFn(ctx, actorID)
}

func (m *mockTaskService) Create(ctx context.Context, actorID string, input task.CreateInput) (*model.Task, error) {
	return m.createFn(ctx, actorID, input)
}

func (m *mockTaskService) Update(ctx context.Context, actorID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	return m.updateFn(ctx, actorID, taskID, patch)
}

func (m *mockTaskService) Delete(ctx context.Context, actorID, taskID string) error {
	return m.deleteFn(ctx, actorID, taskID)
}

var _ TaskServiceInterface = (*mockTaskService)(nil)

// sampleTask はテスト用のタスクを生成する。
func sampleTask(id string) *model.Task {
	return &model.Task{
		ID:           id,
		Title:        "週次レポート作成",
		Description:  "先週分の進捗をまとめる",
		Status:       model.TaskStatusPending,
		CreatedAt:    time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		CreatedByID:  "user-alice",
		AssignedToID: "user-bob",
	}
}

// authedRequest はユーザーIDをコンテキストに付与したリクエストを生成する。
func authedRequest(method, target string, body []byte, userID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

// withChiURLParam はchiのURLパラメータをリクエストコンテキストに設定する。
func withChiURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// decodeAPIError はレスポンスボディから統一エラーフォーマットを読み取る。
func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var resp apiErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

// TestListEndpoints_ReturnTasks は3つの一覧エンドポイントがタスクを返すことを検証する。
func TestListEndpoints_ReturnTasks(t *testing.T) {
	tasks := []*model.Task{sampleTask("550e8400-e29b-41d4-a716-446655440000")}
	svc := &mockTaskService{
		listOwnedFn:     func(ctx context.Context, actorID string) ([]*model.Task, error) { return tasks, nil },
		listDelegatedFn: func(ctx context.Context, actorID string) ([]*model.Task, error) { return tasks, nil },
		listHistoryFn:   func(ctx context.Context, actorID string) ([]*model.Task, error) { return tasks, nil },
	}
	h := NewTaskHandler(svc)

	endpoints := map[string]http.HandlerFunc{
		"/api/tasks":          h.ListOwned,
		"/api/tasks/assigned": h.ListDelegated,
		"/api/tasks/history":  h.ListHistory,
	}

	for path, handlerFn := range endpoints {
		t.Run(path, func(t *testing.T) {
			req := authedRequest(http.MethodGet, path, nil, "user-bob")
			rec := httptest.NewRecorder()
			handlerFn(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}

			var got []taskResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("len = %d, want 1", len(got))
			}
			if got[0].Title != "週次レポート作成" {
				t.Errorf("title = %q", got[0].Title)
			}
			if got[0].CreatedByID != "user-alice" {
				t.Errorf("created_by_id = %q, want user-alice", got[0].CreatedByID)
			}
		})
	}
}

// TestListOwned_EmptyReturnsArray はタスク0件でもnullではなく空配列を返すことを検証する。
func TestListOwned_EmptyReturnsArray(t *testing.T) {
	svc := &mockTaskService{
		listOwnedFn: func(ctx context.Context, actorID string) ([]*model.Task, error) { return nil, nil },
	}
	h := NewTaskHandler(svc)

	req := authedRequest(http.MethodGet, "/api/tasks", nil, "user-bob")
	rec := httptest.NewRecorder()
	h.ListOwned(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := rec.Body.String()
	if body == "null\n" {
		t.Error("expected empty JSON array, got null")
	}

	var got []taskResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

// TestListOwned_WithoutAuthContext は認証コンテキストなしで401になることを検証する。
func TestListOwned_WithoutAuthContext(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	h.ListOwned(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if resp := decodeAPIError(t, rec); resp.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeUnauthorized)
	}
}

// TestCreate_Success はタスク作成が201と作成済みタスクを返すことを検証する。
func TestCreate_Success(t *testing.T) {
	var gotActor string
	var gotInput task.CreateInput
	svc := &mockTaskService{
		createFn: func(ctx context.Context, actorID string, input task.CreateInput) (*model.Task, error) {
			gotActor = actorID
			gotInput = input
			created := sampleTask("550e8400-e29b-41d4-a716-446655440000")
			created.Title = input.Title
			return created, nil
		},
	}
	h := NewTaskHandler(svc)

	body, _ := json.Marshal(map[string]any{
		"title":          "設計レビュー",
		"description":    "来週の設計レビュー準備",
		"assigned_to_id": "user-bob",
	})

	req := authedRequest(http.MethodPost, "/api/tasks", body, "user-alice")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if gotActor != "user-alice" {
		t.Errorf("actorID = %q, want user-alice", gotActor)
	}
	if gotInput.Title != "設計レビュー" {
		t.Errorf("input title = %q", gotInput.Title)
	}

	var got taskResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Title != "設計レビュー" {
		t.Errorf("response title = %q", got.Title)
	}
}

// TestCreate_InvalidJSON は不正なJSONボディで400になることを検証する。
func TestCreate_InvalidJSON(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	req := authedRequest(http.MethodPost, "/api/tasks", []byte("{invalid"), "user-alice")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if resp := decodeAPIError(t, rec); resp.Code != "INVALID_REQUEST" {
		t.Errorf("code = %q, want INVALID_REQUEST", resp.Code)
	}
}

// TestCreate_ServiceErrorMapping はサービス層のAPIErrorがHTTPステータスに変換されることを検証する。
func TestCreate_ServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "バリデーションエラーは400",
			serviceErr: model.NewInvalidTaskDataError("title"),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeInvalidTaskData,
		},
		{
			name:       "担当者不明は400",
			serviceErr: model.NewAssigneeNotFoundError("user-x"),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeAssigneeNotFound,
		},
		{
			name:       "ラップされたAPIErrorも変換される",
			serviceErr: fmt.Errorf("タスクの作成に失敗しました: %w", model.NewInvalidTaskDataError("status")),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeInvalidTaskData,
		},
		{
			name:       "未知のエラーは500",
			serviceErr: fmt.Errorf("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTaskService{
				createFn: func(ctx context.Context, actorID string, input task.CreateInput) (*model.Task, error) {
					return nil, tt.serviceErr
				},
			}
			h := NewTaskHandler(svc)

			body, _ := json.Marshal(map[string]any{"title": "x", "assigned_to_id": "user-bob"})
			req := authedRequest(http.MethodPost, "/api/tasks", body, "user-alice")
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if resp := decodeAPIError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

// TestUpdate_InvalidTaskID はUUID形式でないIDで400になることを検証する。
func TestUpdate_InvalidTaskID(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	body, _ := json.Marshal(map[string]any{"title": "x"})
	req := authedRequest(http.MethodPut, "/api/tasks/not-a-uuid", body, "user-alice")
	req = withChiURLParam(req, "id", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if resp := decodeAPIError(t, rec); resp.Code != model.ErrCodeInvalidTaskID {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeInvalidTaskID)
	}
}

// TestUpdate_BuildsPatchFromRequest はリクエストボディからTaskPatchが組み立てられることを検証する。
func TestUpdate_BuildsPatchFromRequest(t *testing.T) {
	const taskID = "550e8400-e29b-41d4-a716-446655440000"

	var gotPatch model.TaskPatch
	svc := &mockTaskService{
		updateFn: func(ctx context.Context, actorID, id string, patch model.TaskPatch) (*model.Task, error) {
			gotPatch = patch
			updated := sampleTask(id)
			updated.Status = model.TaskStatusCompleted
			return updated, nil
		},
	}
	h := NewTaskHandler(svc)

	body, _ := json.Marshal(map[string]any{"status": "completed"})
	req := authedRequest(http.MethodPut, "/api/tasks/"+taskID, body, "user-bob")
	req = withChiURLParam(req, "id", taskID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotPatch.Status == nil || *gotPatch.Status != model.TaskStatusCompleted {
		t.Errorf("patch status = %v, want completed", gotPatch.Status)
	}
	if gotPatch.Title != nil {
		t.Errorf("patch title = %v, want nil", gotPatch.Title)
	}
}

// TestUpdate_ForbiddenAndNotFound は権限エラーと不在エラーのステータス変換を検証する。
func TestUpdate_ForbiddenAndNotFound(t *testing.T) {
	const taskID = "550e8400-e29b-41d4-a716-446655440000"

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"関係のないユーザーは403", model.NewTaskForbiddenError(), http.StatusForbidden},
		{"存在しないタスクは404", model.NewTaskNotFoundError(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTaskService{
				updateFn: func(ctx context.Context, actorID, id string, patch model.TaskPatch) (*model.Task, error) {
					return nil, tt.serviceErr
				},
			}
			h := NewTaskHandler(svc)

			body, _ := json.Marshal(map[string]any{"title": "x"})
			req := authedRequest(http.MethodPut, "/api/tasks/"+taskID, body, "user-carol")
			req = withChiURLParam(req, "id", taskID)
			rec := httptest.NewRecorder()
			h.Update(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

// TestDelete_Success は削除成功時に204を返すことを検証する。
func TestDelete_Success(t *testing.T) {
	const taskID = "550e8400-e29b-41d4-a716-446655440000"

	var gotActor, gotTaskID string
	svc := &mockTaskService{
		deleteFn: func(ctx context.Context, actorID, id string) error {
			gotActor = actorID
			gotTaskID = id
			return nil
		},
	}
	h := NewTaskHandler(svc)

	req := authedRequest(http.MethodDelete, "/api/tasks/"+taskID, nil, "user-alice")
	req = withChiURLParam(req, "id", taskID)
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if gotActor != "user-alice" || gotTaskID != taskID {
		t.Errorf("delete called with (%q, %q)", gotActor, gotTaskID)
	}
}

// TestDelete_Forbidden は作成者以外の削除が403になることを検証する。
func TestDelete_Forbidden(t *testing.T) {
	const taskID = "550e8400-e29b-41d4-a716-446655440000"

	svc := &mockTaskService{
		deleteFn: func(ctx context.Context, actorID, id string) error {
			return model.NewTaskForbiddenError()
		},
	}
	h := NewTaskHandler(svc)

	req := authedRequest(http.MethodDelete, "/api/tasks/"+taskID, nil, "user-bob")
	req = withChiURLParam(req, "id", taskID)
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if resp := decodeAPIError(t, rec); resp.Code != model.ErrCodeTaskForbidden {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeTaskForbidden)
	}
}
