package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/konewka17/localtuya/internal/auth"
)

// loginAs performs a full login and returns the token pair.
func loginAs(t *testing.T, router http.Handler, username, password string) loginResponse {
	t.Helper()

	body := fmt.Sprintf(`{"username": %q, "password": %q}`, username, password)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	return resp
}

// refreshWith exchanges a refresh token and returns the response recorder.
func refreshWith(t *testing.T, router http.Handler, refreshToken string) *httptest.ResponseRecorder {
	t.Helper()

	body := fmt.Sprintf(`{"refresh_token": %q}`, refreshToken)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ─── /auth/me Tests ────────────────────────────────────────────────

func TestMe(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tokens := loginAs(t, router, testAdminUser, testAdminPassword)

	w := authedRequest(t, router, tokens.AccessToken, http.MethodGet, "/api/v1/auth/me", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		User        auth.User         `json:"user"`
		Permissions []auth.Permission `json:"permissions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.User.Username != testAdminUser {
		t.Errorf("username = %q, want %q", resp.User.Username, testAdminUser)
	}
	if resp.User.Role != auth.RoleAdmin {
		t.Errorf("role = %q, want %q", resp.User.Role, auth.RoleAdmin)
	}

	// An admin can configure devices but cannot factory-reset.
	perms := make(map[auth.Permission]bool, len(resp.Permissions))
	for _, p := range resp.Permissions {
		perms[p] = true
	}
	if !perms[auth.PermDeviceConfigure] {
		t.Error("admin permissions should include device:configure")
	}
	if perms[auth.PermSystemDangerous] {
		t.Error("admin permissions should not include system:dangerous")
	}
}

func TestMe_DeletedAccount(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	ghost := seedAPIUser(t, srv, "ghost", "ghost-password", auth.RoleUser)
	token := bearerFor(t, srv, ghost)

	if err := srv.userRepo.Delete(t.Context(), ghost.ID); err != nil {
		t.Fatalf("deleting user: %v", err)
	}

	w := authedRequest(t, router, token, http.MethodGet, "/api/v1/auth/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// ─── Refresh Token Tests ───────────────────────────────────────────

func TestRefresh_RotatesToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tokens := loginAs(t, router, testAdminUser, testAdminPassword)

	w := refreshWith(t, router, tokens.RefreshToken)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d; body: %s", w.Code, w.Body.String())
	}

	var rotated loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rotated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if rotated.RefreshToken == "" || rotated.RefreshToken == tokens.RefreshToken {
		t.Error("refresh should return a new refresh token")
	}
	if rotated.AccessToken == "" {
		t.Error("refresh should return a new access token")
	}

	// The rotated token works.
	if w := refreshWith(t, router, rotated.RefreshToken); w.Code != http.StatusOK {
		t.Errorf("rotated token refresh status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRefresh_ReuseKillsFamily(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tokens := loginAs(t, router, testAdminUser, testAdminPassword)

	// Rotate once.
	w := refreshWith(t, router, tokens.RefreshToken)
	if w.Code != http.StatusOK {
		t.Fatalf("first refresh status = %d; body: %s", w.Code, w.Body.String())
	}
	var rotated loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rotated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// Replaying the original (now revoked) token must fail and take the
	// whole family with it.
	if w := refreshWith(t, router, tokens.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Errorf("replayed token status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if w := refreshWith(t, router, rotated.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Errorf("family member status after reuse = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	if w := refreshWith(t, router, "deadbeef-not-a-real-token"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// ─── Logout Tests ──────────────────────────────────────────────────

func TestLogout_RevokesFamily(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tokens := loginAs(t, router, testAdminUser, testAdminPassword)

	body := fmt.Sprintf(`{"refresh_token": %q}`, tokens.RefreshToken)
	w := authedRequest(t, router, tokens.AccessToken, http.MethodPost, "/api/v1/auth/logout", body)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want %d", w.Code, http.StatusNoContent)
	}

	if w := refreshWith(t, router, tokens.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestLogout_WithoutRefreshToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	// Nothing to revoke, but the logout itself still succeeds.
	w := authedRequest(t, router, adminToken(t, srv), http.MethodPost, "/api/v1/auth/logout", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

// ─── Password Change Tests ─────────────────────────────────────────

func TestChangePassword(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tokens := loginAs(t, router, testAdminUser, testAdminPassword)

	body := fmt.Sprintf(`{"current_password": %q, "new_password": "a-brand-new-pw"}`, testAdminPassword)
	w := authedRequest(t, router, tokens.AccessToken, http.MethodPost, "/api/v1/auth/password", body)
	if w.Code != http.StatusOK {
		t.Fatalf("change password status = %d; body: %s", w.Code, w.Body.String())
	}

	// Old sessions are revoked.
	if w := refreshWith(t, router, tokens.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh after password change status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	// The new password works.
	loginAs(t, router, testAdminUser, "a-brand-new-pw")
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"current_password": "wrong", "new_password": "a-brand-new-pw"}`
	w := authedRequest(t, router, adminToken(t, srv), http.MethodPost, "/api/v1/auth/password", body)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestChangePassword_TooShort(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := fmt.Sprintf(`{"current_password": %q, "new_password": "short"}`, testAdminPassword)
	w := authedRequest(t, router, adminToken(t, srv), http.MethodPost, "/api/v1/auth/password", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
