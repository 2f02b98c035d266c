package repository

import (
	"context"
	"errors"
	"time"

	"fitlift/backend/internal/user/domain"
)

// ErrDuplicateEmail is returned by Create when the email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository defines persistence for users and their session state.
//
// All Get methods return (nil, nil) when no row matches; errors are reserved
// for storage failures. Session fields (refresh token + expiry) are always
// written and cleared together.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByRefreshToken looks a user up by the exact stored refresh token
	// value. Hot path of every refresh; the column is indexed.
	GetByRefreshToken(ctx context.Context, token string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// SaveRefreshToken overwrites the user's session state with the given
	// token and expiry.
	SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// RotateRefreshToken replaces the stored refresh token with next only if
	// the stored value still equals presented, as a single conditional update.
	// Returns false when the condition did not hold (the token was already
	// rotated or revoked by a concurrent caller).
	RotateRefreshToken(ctx context.Context, userID, presented, next string, expiresAt time.Time) (bool, error)
	// ClearRefreshToken nulls the user's session state (token and expiry).
	ClearRefreshToken(ctx context.Context, userID string) error
	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*domain.User, error)
	// UpdateRole sets the user's role. Returns false when the user does not exist.
	UpdateRole(ctx context.Context, userID string, role domain.Role) (bool, error)
	// Delete removes the user. Returns false when the user does not exist.
	Delete(ctx context.Context, userID string) (bool, error)
}
