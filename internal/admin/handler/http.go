// Package handler exposes admin-only user management: list users, inspect one,
// change roles, delete accounts. Every route sits behind the admin role guard.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fitlift/backend/internal/server/middleware"
	"fitlift/backend/internal/user/domain"
)

// UserAdminRepo is the minimal user repository needed by the admin handler.
type UserAdminRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	UpdateRole(ctx context.Context, userID string, role domain.Role) (bool, error)
	Delete(ctx context.Context, userID string) (bool, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}

// AdminHandler handles the /admin routes.
type AdminHandler struct {
	users UserAdminRepo
	log   zerolog.Logger
}

// NewAdminHandler returns an AdminHandler backed by the given repository.
func NewAdminHandler(users UserAdminRepo, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{users: users, log: log}
}

type userView struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toView(u *domain.User) userView {
	return userView{
		ID:        u.ID,
		Nickname:  u.Nickname,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toView(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetUser handles GET /admin/users/{id}.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if u == nil {
		writeErr(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, toView(u))
}

// UpdateRole handles PUT /admin/users/{id}/role. Admins cannot change their
// own role. A role change ends the target's active session so the new role
// takes effect on their next login.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	caller := middleware.PrincipalFromContext(r.Context())
	if caller != nil && caller.User.ID == targetID {
		writeErr(w, http.StatusBadRequest, "cannot change own role")
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	role, err := domain.ParseRole(body.Role)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := h.users.UpdateRole(r.Context(), targetID, role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusNotFound, "user not found")
		return
	}
	if err := h.users.ClearRefreshToken(r.Context(), targetID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  targetID,
		"new_role": string(role),
	})
}

// DeleteUser handles DELETE /admin/users/{id}. Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	caller := middleware.PrincipalFromContext(r.Context())
	if caller != nil && caller.User.ID == targetID {
		writeErr(w, http.StatusBadRequest, "cannot delete own account")
		return
	}
	ok, err := h.users.Delete(r.Context(), targetID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error().Err(err).Str("path", r.URL.Path).Msg("admin handler failed")
	writeErr(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
