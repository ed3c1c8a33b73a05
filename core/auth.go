package core

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the operator username/password is wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// OperatorAuth authenticates the single operator account configured at
// startup. There is no user table: the coordinator has exactly one
// credential, matching the single-operator dashboard it serves.
type OperatorAuth struct {
	username     string
	passwordHash string
}

func NewOperatorAuth(username, passwordHash string) *OperatorAuth {
	return &OperatorAuth{username: username, passwordHash: passwordHash}
}

// Authenticate checks username/password against the configured operator
// credential.
func (a *OperatorAuth) Authenticate(username, password string) error {
	if username != a.username {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
