// Package auth checks the shared web password and issues the session cookie value.
package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Verifier 校验共享密码。配置了 bcrypt 哈希时优先使用哈希
type Verifier struct {
	password string
	hash     string
}

// NewVerifier creates a verifier for a plain password, a bcrypt hash, or both.
func NewVerifier(password, hash string) *Verifier {
	return &Verifier{password: password, hash: hash}
}

// Verify reports whether candidate matches the configured secret.
func (v *Verifier) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	if v.hash != "" {
		return CheckPasswordHash(candidate, v.hash)
	}
	if v.password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(v.password)) == 1
}
