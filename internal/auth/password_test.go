package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndMatch(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "pw1" {
		t.Fatal("password stored in clear")
	}

	ok, err := h.Match(hash, "pw1")
	if err != nil || !ok {
		t.Fatalf("expected match, got %v, %v", ok, err)
	}
	ok, err = h.Match(hash, "pw2")
	if err != nil || ok {
		t.Fatalf("expected mismatch, got %v, %v", ok, err)
	}
}

func TestMatchMalformedHash(t *testing.T) {
	ok, err := NewHasher(bcrypt.MinCost).Match("not-a-hash", "pw")
	if ok || err == nil {
		t.Fatalf("expected error for malformed hash, got %v, %v", ok, err)
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultCost},
		{1, bcrypt.MinCost},
		{bcrypt.MaxCost + 5, bcrypt.MaxCost},
		{12, 12},
	}
	for _, tt := range tests {
		if got := NewHasher(tt.in).cost; got != tt.want {
			t.Errorf("NewHasher(%d).cost = %d, want %d", tt.in, got, tt.want)
		}
	}
}
