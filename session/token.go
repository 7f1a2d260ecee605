package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const tokenSize = 32

// ErrMalformedToken is returned for tokens that cannot have been issued by [NewToken].
var ErrMalformedToken = errors.New("malformed session token")

// NewToken returns a fresh opaque session token: 32 random bytes, base64url without padding.
func NewToken() (string, error) {
	var raw [tokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashToken returns the storage key material for token.
func HashToken(token string) ([32]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != tokenSize {
		return [32]byte{}, ErrMalformedToken
	}
	return sha256.Sum256(raw), nil
}

func hashHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
