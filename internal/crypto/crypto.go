// Package crypto hashes the identifiers the gateway must never store or
// log in the clear: client network identifiers in usage records and the
// admin bearer token.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashIdentifier produces the stable SHA-256 hex digest under which a
// client identifier is recorded.
func HashIdentifier(identifier string) string {
	hash := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(hash[:])
}

// HashAdminToken generates a bcrypt hash for ADMIN_TOKEN_HASH. Exposed so
// an operator can mint the hash with a one-off command.
func HashAdminToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAdminToken compares a presented bearer token against the stored
// bcrypt hash.
func VerifyAdminToken(hash, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
