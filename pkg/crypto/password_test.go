package crypto

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := &PasswordHasher{cost: bcrypt.MinCost}

	hash, err := h.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash equals the password")
	}
	if !h.CheckPasswordHash("s3cret-pass", hash) {
		t.Error("matching password rejected")
	}
	if h.CheckPasswordHash("wrong", hash) {
		t.Error("wrong password accepted")
	}
}
