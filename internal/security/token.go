package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const tokenBytes = 32

// NewToken returns a fresh random token as (plaintext, sha256-hex-of-plaintext).
// The plaintext goes into the emailed link; only the hash is ever persisted,
// so a database dump does not yield usable tokens.
func NewToken() (plain string, hash string, err error) {
	b := make([]byte, tokenBytes)

	_, err = rand.Read(b)

	if err != nil {
		return "", "", err
	}

	plain = hex.EncodeToString(b)

	return plain, HashToken(plain), nil
}

// HashToken maps a presented plaintext token onto its stored form.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))

	return hex.EncodeToString(sum[:])
}
