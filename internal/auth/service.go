// Package auth はOAuth認証フロー、ユーザー解決、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskshare/internal/model"
	"github.com/hitoshi/taskshare/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	// AllowedDomain が設定されている場合、そのドメインのメールアドレスを持つ
	// アカウントのみログインを許可する。
	AllowedDomain string
}

// LoginRecorder はログイン成功のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type LoginRecorder interface {
	RecordLogin()
}

// Service は認証に関するビジネスロジックを提供する。
// 外部IdPのアサーションをローカルのユーザーレコードへ解決し、セッションを発行する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	metrics     LoginRecorder // nil可
	config      ServiceConfig
}

// NewService はServiceを生成する。metricsはnilを許容する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	metrics LoginRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 認可コードの交換で得たアサーションをResolveUserでローカルユーザーに解決する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.ResolveUser(ctx, userInfo)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLogin()
	}

	return session, nil
}

// ResolveUser は外部IdPのアサーションをローカルのユーザーレコードへ解決する。
// 既存ユーザーが見つかった場合はそのまま返す（再ログイン時のプロフィール同期は行わない）。
// 未登録の場合は新規ユーザーを作成する。メールアドレスのないアサーションは拒否する。
// 同一アカウントの初回ログインが同時に走った場合、2件目のINSERTは一意制約違反で
// 失敗するため、再検索して既存ユーザーを返す。この競合が呼び出し側に漏れることはない。
func (s *Service) ResolveUser(ctx context.Context, userInfo *OAuthUserInfo) (*model.User, error) {
	if err := s.checkAllowedDomain(userInfo.Email); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByGoogleID(ctx, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user != nil {
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
		)
		return user, nil
	}

	if userInfo.Email == "" {
		return nil, model.NewMissingEmailError()
	}

	newUser := &model.User{
		ID:        uuid.New().String(),
		Email:     userInfo.Email,
		Name:      userInfo.Name,
		Picture:   userInfo.Picture,
		GoogleID:  userInfo.ProviderUserID,
		CreatedAt: time.Now(),
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			// 同時初回ログインの競合: 勝った側のレコードを返す
			existing, findErr := s.userRepo.FindByGoogleID(ctx, userInfo.ProviderUserID)
			if findErr != nil {
				return nil, fmt.Errorf("failed to re-find user after duplicate insert: %w", findErr)
			}
			if existing == nil {
				return nil, fmt.Errorf("user insert conflicted but lookup found nothing: %w", err)
			}
			slog.Info("first-login race resolved to existing user",
				slog.String("user_id", existing.ID),
			)
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("email", newUser.Email),
	)
	return newUser, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// checkAllowedDomain はメールアドレスが許可ドメインに属するかを検証する。
// AllowedDomainが未設定の場合は常に許可する。
func (s *Service) checkAllowedDomain(email string) error {
	if s.config.AllowedDomain == "" {
		return nil
	}
	if !strings.HasSuffix(email, "@"+s.config.AllowedDomain) {
		return model.NewDomainNotAllowedError(s.config.AllowedDomain)
	}
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
