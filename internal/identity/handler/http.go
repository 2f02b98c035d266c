// Package handler exposes the auth service over HTTP: register, login,
// refresh, logout, and the current-user view.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"fitlift/backend/internal/identity/service"
	"fitlift/backend/internal/server/middleware"
)

// AuthHandler handles the /auth routes.
type AuthHandler struct {
	auth     *service.AuthService
	validate *validator.Validate
	log      zerolog.Logger
}

// NewAuthHandler returns an AuthHandler backed by the given auth service.
func NewAuthHandler(auth *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, validate: validator.New(), log: log}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role,omitempty"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nickname string `json:"nickname" validate:"required,max=64"`
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,min=8,max=128"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	user, pair, err := h.auth.Register(r.Context(), body.Nickname, body.Email, body.Password)
	if err != nil {
		middleware.RecordAuthAttempt("register", false)
		if errors.Is(err, service.ErrEmailAlreadyRegistered) {
			writeErr(w, http.StatusConflict, err.Error())
			return
		}
		h.fail(w, r, err)
		return
	}
	middleware.RecordAuthAttempt("register", true)
	writeJSON(w, http.StatusCreated, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Role:         string(user.Role),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,max=128"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	user, pair, err := h.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		middleware.RecordAuthAttempt("login", false)
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeErr(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.fail(w, r, err)
		return
	}
	middleware.RecordAuthAttempt("login", true)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Role:         string(user.Role),
	})
}

// Refresh handles POST /auth/refresh. The presented refresh token is single
// use; a replayed one fails and revokes the subject's session.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	_, pair, err := h.auth.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		middleware.RecordAuthAttempt("refresh", false)
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			writeErr(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.fail(w, r, err)
		return
	}
	middleware.RecordAuthAttempt("refresh", true)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout handles POST /auth/logout. Always 204: an invalid or stale token
// still means the caller ends up logged out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	// Tolerate a malformed body too; logout is best-effort.
	_ = json.NewDecoder(r.Body).Decode(&body)
	if err := h.auth.Logout(r.Context(), body.RefreshToken); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me. Requires the Authenticate middleware. The role
// reported here is the one embedded in the access token; guards elsewhere use
// the stored role.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		writeErr(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":       p.User.ID,
		"nickname": p.User.Nickname,
		"email":    p.User.Email,
		"role":     p.Claims.Role,
	})
}

// decode parses and validates the JSON request body. Writes a 400 and returns
// false on failure.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, body any) bool {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return false
	}
	if err := h.validate.Struct(body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error().Err(err).Str("path", r.URL.Path).Msg("auth handler failed")
	writeErr(w, http.StatusInternalServerError, "internal error")
}
