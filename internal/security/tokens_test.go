package security

import (
	"testing"
	"time"
)

func newTestCodec() *TokenCodec {
	return NewTokenCodec("access-secret", "refresh-secret", 30*time.Minute, 7*24*time.Hour)
}

func TestTokenCodec_AccessRoundTrip(t *testing.T) {
	c := newTestCodec()
	token, exp, err := c.IssueAccess("user-1", "pro")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if time.Until(exp) > 30*time.Minute || time.Until(exp) < 29*time.Minute {
		t.Errorf("access expiry not ~30m out: %v", exp)
	}
	claims, err := c.DecodeAccess(token)
	if err != nil {
		t.Fatalf("DecodeAccess: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("sub = %q, want user-1", claims.Subject)
	}
	if claims.Role != "pro" {
		t.Errorf("role = %q, want pro", claims.Role)
	}
}

func TestTokenCodec_RefreshCarriesNoRole(t *testing.T) {
	c := newTestCodec()
	token, _, err := c.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	claims, err := c.DecodeRefresh(token)
	if err != nil {
		t.Fatalf("DecodeRefresh: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("sub = %q, want user-1", claims.Subject)
	}
}

func TestTokenCodec_RefreshTokensAreUnique(t *testing.T) {
	c := newTestCodec()
	// Back-to-back issuances land in the same wall-clock second; the jti must
	// still keep the tokens distinct.
	first, _, err := c.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	second, _, err := c.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if first == second {
		t.Fatal("two refresh tokens for the same subject must not be identical")
	}
	claims, err := c.DecodeRefresh(first)
	if err != nil {
		t.Fatalf("DecodeRefresh: %v", err)
	}
	if claims.ID == "" {
		t.Error("refresh claims should carry a jti")
	}
}

func TestTokenCodec_SecretsAreIndependent(t *testing.T) {
	c := newTestCodec()
	access, _, _ := c.IssueAccess("user-1", "user")
	refresh, _, _ := c.IssueRefresh("user-1")

	if _, err := c.DecodeRefresh(access); err != ErrInvalidToken {
		t.Errorf("access token must not validate as refresh: got %v", err)
	}
	if _, err := c.DecodeAccess(refresh); err != ErrInvalidToken {
		t.Errorf("refresh token must not validate as access: got %v", err)
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	c := newTestCodec()
	other := NewTokenCodec("other-access", "other-refresh", time.Minute, time.Minute)
	token, _, _ := c.IssueAccess("user-1", "user")
	if _, err := other.DecodeAccess(token); err != ErrInvalidToken {
		t.Errorf("token signed with different secret should fail: got %v", err)
	}
}

func TestTokenCodec_Garbage(t *testing.T) {
	c := newTestCodec()
	for _, s := range []string{"", "garbage", "a.b.c"} {
		if _, err := c.DecodeAccess(s); err != ErrInvalidToken {
			t.Errorf("DecodeAccess(%q): want ErrInvalidToken, got %v", s, err)
		}
		if _, err := c.DecodeRefresh(s); err != ErrInvalidToken {
			t.Errorf("DecodeRefresh(%q): want ErrInvalidToken, got %v", s, err)
		}
	}
}

func TestTokenCodec_Expired(t *testing.T) {
	c := NewTokenCodec("access-secret", "refresh-secret", -time.Minute, -time.Minute)
	access, _, _ := c.IssueAccess("user-1", "user")
	refresh, _, _ := c.IssueRefresh("user-1")

	if _, err := c.DecodeAccess(access); err != ErrInvalidToken {
		t.Errorf("expired access token: want ErrInvalidToken, got %v", err)
	}
	if _, err := c.DecodeRefresh(refresh); err != ErrInvalidToken {
		t.Errorf("expired refresh token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_DecodeRefreshAllowExpired(t *testing.T) {
	c := NewTokenCodec("access-secret", "refresh-secret", time.Minute, -time.Minute)
	refresh, _, _ := c.IssueRefresh("user-7")

	claims, err := c.DecodeRefreshAllowExpired(refresh)
	if err != nil {
		t.Fatalf("DecodeRefreshAllowExpired: %v", err)
	}
	if claims.Subject != "user-7" {
		t.Errorf("sub = %q, want user-7", claims.Subject)
	}

	// Signature is still checked.
	other := NewTokenCodec("access-secret", "other-refresh", time.Minute, time.Minute)
	bad, _, _ := other.IssueRefresh("user-7")
	if _, err := c.DecodeRefreshAllowExpired(bad); err != ErrInvalidToken {
		t.Errorf("foreign signature: want ErrInvalidToken, got %v", err)
	}
}
