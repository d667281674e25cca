package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/taskshare/internal/middleware"
	"github.com/hitoshi/taskshare/internal/model"
)

// TeamServiceInterface はチームハンドラーが必要とするサービスインターフェース。
type TeamServiceInterface interface {
	// ListMembers は全メンバーを名前昇順で返す。
	ListMembers(ctx context.Context) ([]*model.User, error)
}

// TeamHandler はチームメンバー一覧のHTTPハンドラー。
type TeamHandler struct {
	service TeamServiceInterface
}

// NewTeamHandler はTeamHandlerを生成する。
func NewTeamHandler(service TeamServiceInterface) *TeamHandler {
	return &TeamHandler{
		service: service,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
// GoogleのアカウントIDなど内部的な識別子は含めない。
type userResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ListMembers はタスクの割り当て先候補となる全メンバーを返す。
// GET /api/team
func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]userResponse, 0, len(members))
	for _, m := range members {
		responses = append(responses, toUserResponse(m))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Picture: u.Picture,
	}
}
