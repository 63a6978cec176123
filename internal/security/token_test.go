package security_test

import (
	"encoding/hex"
	"testing"

	"github.com/primeestates/primeestates/internal/security"
)

func TestNewTokenShape(t *testing.T) {
	plain, hash, err := security.NewToken()

	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	if len(plain) != 64 {
		t.Fatalf("plaintext should be 64 hex chars, got %d", len(plain))
	}

	if _, err := hex.DecodeString(plain); err != nil {
		t.Fatalf("plaintext is not hex: %v", err)
	}

	if hash != security.HashToken(plain) {
		t.Fatalf("returned hash must be the digest of the plaintext")
	}

	if hash == plain {
		t.Fatalf("stored form must differ from the emailed form")
	}
}

func TestNewTokenIsUnique(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		plain, _, err := security.NewToken()

		if err != nil {
			t.Fatalf("token generation failed: %v", err)
		}

		if _, dup := seen[plain]; dup {
			t.Fatalf("duplicate token generated")
		}

		seen[plain] = struct{}{}
	}
}

func TestHashTokenIsDeterministic(t *testing.T) {
	if security.HashToken("abc") != security.HashToken("abc") {
		t.Fatalf("same input should hash to the same digest")
	}

	if security.HashToken("abc") == security.HashToken("abd") {
		t.Fatalf("different inputs should not collide")
	}
}
