package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialManager owns password hashing and verification. Hash material
// never leaves this package except as the opaque string the store persists,
// and plaintext passwords are never logged.
type CredentialManager struct {
	cost int
}

func NewCredentialManager() *CredentialManager {
	return &CredentialManager{cost: bcrypt.DefaultCost}
}

// HashPassword derives a salted one-way hash. The same input produces a
// different hash on every call; CheckPassword still matches all of them.
func (c *CredentialManager) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches hash. Comparison is
// timing-safe (bcrypt). A malformed or empty hash is not an error, just a
// non-match.
func (c *CredentialManager) CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
