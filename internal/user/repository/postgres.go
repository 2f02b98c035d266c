package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"fitlift/backend/internal/user/domain"
)

const uniqueViolation = "23505"

const userColumns = `id, email, nickname, password_hash, role, refresh_token, refresh_token_expires_at, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetByRefreshToken returns the user whose stored refresh token equals token
// exactly, or nil if none does.
func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE refresh_token = $1`, token)
	return scanUser(row)
}

// Create persists the user. The user must have ID set; it is not assigned by
// this method. Returns ErrDuplicateEmail when the email is already registered.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, nickname, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Nickname, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

// SaveRefreshToken overwrites the user's session state with token and expiresAt.
func (r *PostgresRepository) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = now()
		WHERE id = $1`,
		userID, token, expiresAt,
	)
	return err
}

// RotateRefreshToken conditionally replaces the stored refresh token. The
// WHERE clause on the presented value makes lookup-and-invalidate a single
// atomic step: of two concurrent callers presenting the same token, only one
// sees an affected row.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, userID, presented, next string, expiresAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET refresh_token = $3, refresh_token_expires_at = $4, updated_at = now()
		WHERE id = $1 AND refresh_token = $2`,
		userID, presented, next, expiresAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearRefreshToken nulls both session fields in one statement.
func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = now()
		WHERE id = $1`,
		userID,
	)
	return err
}

// List returns all users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateRole sets the user's role. Returns false when no row was updated.
func (r *PostgresRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET role = $2, updated_at = now() WHERE id = $1`,
		userID, string(role),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes the user. Returns false when no row was deleted.
func (r *PostgresRepository) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u       domain.User
		role    string
		token   sql.NullString
		expires sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash, &role, &token, &expires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	if token.Valid {
		u.RefreshToken = &token.String
	}
	if expires.Valid {
		t := expires.Time
		u.RefreshTokenExpiresAt = &t
	}
	return &u, nil
}
