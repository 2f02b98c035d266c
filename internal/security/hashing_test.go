package security

import (
	"testing"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(10)
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if !h.Verify("secret123", hash) {
		t.Fatal("Verify with correct password should succeed")
	}
}

func TestHasher_VerifyWrongPassword(t *testing.T) {
	h := NewHasher(10)
	hash, _ := h.Hash("secret123")
	if h.Verify("wrong", hash) {
		t.Fatal("Verify with wrong password should fail")
	}
}

func TestHasher_VerifyIsTotal(t *testing.T) {
	h := NewHasher(10)
	for _, digest := range []string{"", "not-a-valid-hash", "$2a$garbage"} {
		if h.Verify("anything", digest) {
			t.Errorf("Verify(%q) should return false", digest)
		}
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
}
