package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestGetLoginURL_ContainsRequiredParams(t *testing.T) {
	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost:8080/auth/google/callback",
	})

	loginURL := provider.GetLoginURL("test-state")

	parsed, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("failed to parse login URL: %v", err)
	}

	params := parsed.Query()
	if params.Get("client_id") != "test-client-id" {
		t.Errorf("client_id = %q, want %q", params.Get("client_id"), "test-client-id")
	}
	if params.Get("redirect_uri") != "http://localhost:8080/auth/google/callback" {
		t.Errorf("redirect_uri = %q", params.Get("redirect_uri"))
	}
	if params.Get("response_type") != "code" {
		t.Errorf("response_type = %q, want %q", params.Get("response_type"), "code")
	}
	if params.Get("state") != "test-state" {
		t.Errorf("state = %q, want %q", params.Get("state"), "test-state")
	}
	if !strings.Contains(params.Get("scope"), "email") {
		t.Errorf("scope %q should contain email", params.Get("scope"))
	}
	if params.Has("hd") {
		t.Error("hd param should be absent without a workspace domain")
	}
}

func TestGetLoginURL_WorkspaceDomain_AddsHDParam(t *testing.T) {
	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:        "test-client-id",
		RedirectURL:     "http://localhost:8080/auth/google/callback",
		WorkspaceDomain: "example.com",
	})

	parsed, err := url.Parse(provider.GetLoginURL("test-state"))
	if err != nil {
		t.Fatalf("failed to parse login URL: %v", err)
	}

	if parsed.Query().Get("hd") != "example.com" {
		t.Errorf("hd = %q, want %q", parsed.Query().Get("hd"), "example.com")
	}
}

func TestExchangeCode_Success(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token endpoint method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostFormValue("code") != "test-code" {
			t.Errorf("code = %q, want %q", r.PostFormValue("code"), "test-code")
		}
		if r.PostFormValue("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q", r.PostFormValue("grant_type"))
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-access-token" {
			t.Errorf("Authorization = %q", got)
		}

		json.NewEncoder(w).Encode(map[string]string{
			"sub":     "google-user-123",
			"email":   "alice@example.com",
			"name":    "Alice",
			"picture": "https://example.com/alice.png",
		})
	}))
	defer userInfoServer.Close()

	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userInfoServer.URL,
	})

	userInfo, err := provider.ExchangeCode(context.Background(), "test-code")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if userInfo.ProviderUserID != "google-user-123" {
		t.Errorf("ProviderUserID = %q, want %q", userInfo.ProviderUserID, "google-user-123")
	}
	if userInfo.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", userInfo.Email, "alice@example.com")
	}
	if userInfo.Picture != "https://example.com/alice.png" {
		t.Errorf("Picture = %q", userInfo.Picture)
	}
}

func TestExchangeCode_TokenEndpointError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer tokenServer.Close()

	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		TokenURL: tokenServer.URL,
	})

	if _, err := provider.ExchangeCode(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error for token endpoint failure")
	}
}

func TestExchangeCode_EmptyAccessToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token_type": "Bearer"})
	}))
	defer tokenServer.Close()

	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		TokenURL: tokenServer.URL,
	})

	if _, err := provider.ExchangeCode(context.Background(), "test-code"); err == nil {
		t.Fatal("expected error for empty access token")
	}
}

func TestExchangeCode_MissingSub(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "test-access-token"})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"email": "alice@example.com"})
	}))
	defer userInfoServer.Close()

	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	if _, err := provider.ExchangeCode(context.Background(), "test-code"); err == nil {
		t.Fatal("expected error for missing sub in user info")
	}
}
