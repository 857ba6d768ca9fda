package util

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-phrase")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash = %q, want bcrypt format", hash)
	}
	if !CheckPassword("s3cret-phrase", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("wrong-phrase", hash) {
		t.Error("wrong password accepted")
	}
}

func TestHashCost(t *testing.T) {
	hash, err := HashPassword("s3cret-phrase")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != bcryptCost {
		t.Errorf("cost = %d, want %d", cost, bcryptCost)
	}
}
