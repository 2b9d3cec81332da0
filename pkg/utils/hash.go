package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashSecret hashes a shared secret (API key) with bcrypt. Secrets longer than 72 bytes are rejected.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret compares a presented secret with its bcrypt hash.
func CheckSecret(plain, hashed string) bool {
	if plain == "" || hashed == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}
