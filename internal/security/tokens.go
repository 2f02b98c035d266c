package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token is malformed, badly signed, or expired.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims holds JWT claims for the access token. Role is carried for
// informational use only; authorization always re-derives role from storage.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// RefreshClaims holds JWT claims for the refresh token. It deliberately carries
// no role: role can change between issuance and use.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenCodec issues and validates HS256 access and refresh JWTs. The two token
// classes are signed with independent secrets so a leaked access secret cannot
// forge refresh tokens. Both secrets are read-only after construction.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenCodec returns a TokenCodec signing access tokens with accessSecret
// and refresh tokens with refreshSecret.
func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess issues a short-lived access JWT for the given user and role.
// Returns the token string and its expiration time.
func (c *TokenCodec) IssueAccess(userID, role string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(c.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	return token, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT for the given user.
// Returns the token string and its expiration time; the caller must persist
// both so rotation can detect reuse. The jti makes every issued token unique:
// iat/exp have second granularity and HS256 is deterministic, so without it a
// rotation landing in the same second would mint the consumed token again.
func (c *TokenCodec) IssueRefresh(userID string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(c.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	return token, expiresAt, err
}

// DecodeAccess parses and validates an access token (signature, exp).
// Pure verification: no store access. Returns ErrInvalidToken on any failure.
func (c *TokenCodec) DecodeAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.decode(tokenString, claims, c.accessSecret, false); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeRefresh parses and validates a refresh token (signature, exp).
// Returns ErrInvalidToken on any failure.
func (c *TokenCodec) DecodeRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.decode(tokenString, claims, c.refreshSecret, false); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeRefreshAllowExpired verifies a refresh token's signature but tolerates
// an expired exp. Used by logout only: a client must be able to end its session
// with a token that has already run out.
func (c *TokenCodec) DecodeRefreshAllowExpired(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.decode(tokenString, claims, c.refreshSecret, true); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *TokenCodec) decode(tokenString string, claims jwt.Claims, secret []byte, allowExpired bool) error {
	var opts []jwt.ParserOption
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
