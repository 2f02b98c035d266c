// Package service implements the session lifecycle: password login, token
// issuance, single-use refresh rotation with reuse detection, and revocation.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"fitlift/backend/internal/security"
	"fitlift/backend/internal/user/domain"
	"fitlift/backend/internal/user/repository"
)

// Sentinel errors for the auth service; the HTTP layer maps them to status codes.
// Store failures are never converted into these: they propagate as-is.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrUnauthenticated        = errors.New("missing or invalid access token")
)

// TokenPair holds a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// AccessExpiresAt is when the access token stops validating.
	AccessExpiresAt time.Time
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, userID, presented, next string, expiresAt time.Time) (bool, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}

// AuthService owns the per-user session state machine: logged out → active →
// rotated → logged out (explicit logout or detected reuse). It holds no mutable
// state of its own; all session mutation goes through the user repository.
type AuthService struct {
	users  UserRepo
	hasher *security.Hasher
	codec  *security.TokenCodec
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserRepo, hasher *security.Hasher, codec *security.TokenCodec) *AuthService {
	return &AuthService{users: users, hasher: hasher, codec: codec}
}

// Register creates a user with the lowest-privilege role and logs them in.
// Returns ErrEmailAlreadyRegistered when the email is taken.
func (s *AuthService) Register(ctx context.Context, nickname, email, password string) (*domain.User, *TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, nil, err
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Nickname:     strings.TrimSpace(nickname),
		PasswordHash: hashed,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, nil, ErrEmailAlreadyRegistered
		}
		return nil, nil, err
	}
	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login authenticates with email and password and issues a token pair,
// overwriting any previously active session. The error never reveals whether
// the email or the password was wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// issueTokens mints an access/refresh pair for the user and persists the
// refresh token value and expiry as the user's current session. This is the
// only place a refresh token is written.
func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*TokenPair, error) {
	access, accessExp, err := s.codec.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SaveRefreshToken(ctx, user.ID, refresh, refreshExp); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: accessExp}, nil
}

// Refresh exchanges a valid refresh token for a new pair. Rotation is
// one-shot: the presented token stops matching the stored value the moment the
// exchange succeeds.
//
// A token that carries a valid signature but no longer matches any stored
// value was necessarily issued here and already rotated — a replay. We cannot
// tell the thief from the victim, so the subject's whole session is revoked
// before failing; the legitimate holder has to log in again.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*domain.User, *TokenPair, error) {
	if presented == "" {
		return nil, nil, ErrInvalidRefreshToken
	}
	claims, err := s.codec.DecodeRefresh(presented)
	if err != nil {
		return nil, nil, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByRefreshToken(ctx, presented)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		victim, err := s.users.GetByID(ctx, claims.Subject)
		if err != nil {
			return nil, nil, err
		}
		if victim != nil {
			_ = s.users.ClearRefreshToken(ctx, victim.ID)
		}
		return nil, nil, ErrInvalidRefreshToken
	}
	// Stored expiry is rechecked against the wall clock even though the JWT
	// exp already passed signature validation.
	if user.RefreshTokenExpiresAt == nil || user.RefreshTokenExpiresAt.Before(time.Now().UTC()) {
		_ = s.users.ClearRefreshToken(ctx, user.ID)
		return nil, nil, ErrInvalidRefreshToken
	}
	access, accessExp, err := s.codec.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		return nil, nil, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, nil, err
	}
	ok, err := s.users.RotateRefreshToken(ctx, user.ID, presented, refresh, refreshExp)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// A concurrent rotation won between our lookup and the conditional
		// update. The loser gets the ordinary failure.
		return nil, nil, ErrInvalidRefreshToken
	}
	return user, &TokenPair{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: accessExp}, nil
}

// Logout clears the session named by the refresh token. Best-effort and
// idempotent: a garbage, expired, or already-revoked token is not an error,
// since the desired end state (no active session) already holds.
func (s *AuthService) Logout(ctx context.Context, presented string) error {
	if presented == "" {
		return nil
	}
	claims, err := s.codec.DecodeRefreshAllowExpired(presented)
	if err != nil {
		return nil
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.users.ClearRefreshToken(ctx, user.ID)
}

// CurrentUser resolves an access token to a freshly loaded user. The returned
// claims carry the role embedded at issuance, for informational use only;
// authorization must read the user's current role, which may have changed
// since the token was issued.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*domain.User, *security.AccessClaims, error) {
	claims, err := s.codec.DecodeAccess(accessToken)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		// Account deleted after the token was issued.
		return nil, nil, ErrUnauthenticated
	}
	return user, claims, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
