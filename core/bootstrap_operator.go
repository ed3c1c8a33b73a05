package core

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// EnsureOperatorCredential returns a bcrypt hash for the operator account.
// If cfg.OperatorPasswordHash is already set (e.g., via the environment or
// a YAML overlay) it is used as-is; otherwise a random password is
// generated, hashed, and the plaintext is written once to
// cfg.InitialAdminPasswordPath (or logged, if that path is empty) so the
// operator can log in for the first time.
func EnsureOperatorCredential(cfg Config) (string, error) {
	if cfg.OperatorPasswordHash != "" {
		return cfg.OperatorPasswordHash, nil
	}

	password, err := generatePassword(32)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	if cfg.InitialAdminPasswordPath != "" {
		if err := os.WriteFile(cfg.InitialAdminPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return "", err
		}
		log.Printf("operator credential generated; password written to %s", cfg.InitialAdminPasswordPath)
	} else {
		log.Printf("operator credential generated username=%s password=%s", cfg.OperatorUsername, password)
	}

	return string(hash), nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
