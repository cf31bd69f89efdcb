// Package apikey issues, hashes and verifies operator API keys. cmd/icapcli
// mints and checks them; cmd/icapd does not check API keys.
package apikey

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "ts_"

// Key is a freshly minted credential: ID is stored and shown to the
// caller once, Secret must be persisted as its bcrypt hash.
type Key struct {
	ID     string
	Secret string
}

// Generate mints a new API key ID and secret pair.
func Generate() (Key, error) {
	idBytes := make([]byte, 24)
	if _, err := rand.Read(idBytes); err != nil {
		return Key{}, fmt.Errorf("apikey: generate id: %w", err)
	}
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return Key{}, fmt.Errorf("apikey: generate secret: %w", err)
	}

	return Key{
		ID:     keyPrefix + base64.RawURLEncoding.EncodeToString(idBytes),
		Secret: base64.RawURLEncoding.EncodeToString(secretBytes),
	}, nil
}

// Hash produces the value that should be persisted in place of a raw
// secret.
func Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("apikey: hash: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether secret matches the previously stored hash.
func Verify(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
