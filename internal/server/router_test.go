package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	adminhandler "fitlift/backend/internal/admin/handler"
	identityhandler "fitlift/backend/internal/identity/handler"
	"fitlift/backend/internal/identity/service"
	"fitlift/backend/internal/security"
	"fitlift/backend/internal/user/domain"
	"fitlift/backend/internal/user/repository"
)

func newTestServer(t *testing.T) (http.Handler, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	hasher := security.NewHasher(4)
	codec := security.NewTokenCodec("access-secret", "refresh-secret", 30*time.Minute, 7*24*time.Hour)
	auth := service.NewAuthService(repo, hasher, codec)
	log := zerolog.Nop()
	router := NewRouter(RouterConfig{
		Auth:     identityhandler.NewAuthHandler(auth, log),
		Admin:    adminhandler.NewAdminHandler(repo, log),
		Resolver: auth,
		Log:      log,
	})
	return router, repo
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func registerUser(t *testing.T, h http.Handler, email string) (access, refresh string) {
	t.Helper()
	rec, out := doJSON(t, h, http.MethodPost, "/auth/register", "", map[string]string{
		"nickname": "tester", "email": email, "password": "pw123456",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", email, rec.Code, rec.Body.String())
	}
	access, _ = out["access_token"].(string)
	refresh, _ = out["refresh_token"].(string)
	return access, refresh
}

func TestRouter_RegisterLoginMe(t *testing.T) {
	h, _ := newTestServer(t)

	rec, out := doJSON(t, h, http.MethodPost, "/auth/register", "", map[string]string{
		"nickname": "alice", "email": "a@test.com", "password": "pw123456",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if out["role"] != "user" {
		t.Errorf("register role = %v, want user", out["role"])
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/auth/register", "", map[string]string{
		"nickname": "bob", "email": "a@test.com", "password": "pw123456",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: status = %d, want 409", rec.Code)
	}

	rec, out = doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@test.com", "password": "pw123456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d", rec.Code)
	}
	access, _ := out["access_token"].(string)

	rec, out = doJSON(t, h, http.MethodGet, "/auth/me", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status = %d", rec.Code)
	}
	if out["email"] != "a@test.com" || out["nickname"] != "alice" || out["role"] != "user" {
		t.Errorf("unexpected me payload: %v", out)
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me without token: status = %d, want 401", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@test.com", "password": "wrong-pass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: status = %d, want 401", rec.Code)
	}
}

func TestRouter_RefreshRotationScenario(t *testing.T) {
	h, _ := newTestServer(t)
	_, r0 := registerUser(t, h, "a@test.com")

	rec, out := doJSON(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": r0})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh(R0): status = %d", rec.Code)
	}
	a1, _ := out["access_token"].(string)
	r1, _ := out["refresh_token"].(string)

	rec, _ = doJSON(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": r0})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh(R0) replay: status = %d, want 401", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": r1})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh(R1) after reuse: status = %d, want 401", rec.Code)
	}
	// A1 keeps working: access tokens are stateless.
	rec, _ = doJSON(t, h, http.MethodGet, "/auth/me", a1, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("me with A1 after revocation: status = %d, want 200", rec.Code)
	}
}

func TestRouter_LogoutAlwaysSucceeds(t *testing.T) {
	h, _ := newTestServer(t)
	_, refresh := registerUser(t, h, "a@test.com")

	for _, tok := range []string{refresh, refresh, "garbage", ""} {
		rec, _ := doJSON(t, h, http.MethodPost, "/auth/logout", "", map[string]string{"refresh_token": tok})
		if rec.Code != http.StatusNoContent {
			t.Errorf("logout(%q): status = %d, want 204", tok, rec.Code)
		}
	}
	// After logout the refresh token is dead.
	rec, _ := doJSON(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: status = %d, want 401", rec.Code)
	}
}

func promoteToAdmin(t *testing.T, repo *repository.MemoryRepository, email string) string {
	t.Helper()
	u, err := repo.GetByEmail(context.Background(), email)
	if err != nil || u == nil {
		t.Fatalf("GetByEmail(%s): %v", email, err)
	}
	if _, err := repo.UpdateRole(context.Background(), u.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	return u.ID
}

func TestRouter_AdminGuard(t *testing.T) {
	h, repo := newTestServer(t)
	userAccess, _ := registerUser(t, h, "user@test.com")
	_, _ = registerUser(t, h, "boss@test.com")
	promoteToAdmin(t, repo, "boss@test.com")

	// Role changed server-side: a fresh login carries the admin role.
	rec, out := doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "boss@test.com", "password": "pw123456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login: status = %d", rec.Code)
	}
	adminAccess, _ := out["access_token"].(string)

	rec, _ = doJSON(t, h, http.MethodGet, "/admin/users", userAccess, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin route with user role: status = %d, want 403", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/admin/users", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("admin route without token: status = %d, want 401", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/admin/users", adminAccess, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin route with admin role: status = %d, want 200", rec.Code)
	}
}

func TestRouter_AdminRoleUpdateRules(t *testing.T) {
	h, repo := newTestServer(t)
	_, _ = registerUser(t, h, "member@test.com")
	_, _ = registerUser(t, h, "boss@test.com")
	adminID := promoteToAdmin(t, repo, "boss@test.com")

	_, out := doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "boss@test.com", "password": "pw123456",
	})
	adminAccess, _ := out["access_token"].(string)

	member, _ := repo.GetByEmail(context.Background(), "member@test.com")

	rec, _ := doJSON(t, h, http.MethodPut, "/admin/users/"+member.ID+"/role", adminAccess,
		map[string]string{"role": "pro"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update role: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	updated, _ := repo.GetByID(context.Background(), member.ID)
	if updated.Role != domain.RolePro {
		t.Errorf("member role = %q, want pro", updated.Role)
	}
	if updated.HasActiveSession() {
		t.Error("role change should end the target's session")
	}

	rec, _ = doJSON(t, h, http.MethodPut, "/admin/users/"+member.ID+"/role", adminAccess,
		map[string]string{"role": "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid role: status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPut, "/admin/users/"+adminID+"/role", adminAccess,
		map[string]string{"role": "user"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self role change: status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/admin/users/"+adminID, adminAccess, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self delete: status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/admin/users/"+member.ID, adminAccess, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete member: status = %d, want 204", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodDelete, "/admin/users/"+member.ID, adminAccess, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing member: status = %d, want 404", rec.Code)
	}
}

func TestRouter_Healthz(t *testing.T) {
	h, _ := newTestServer(t)
	rec, _ := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200", rec.Code)
	}
}
