// Package directory answers the login question "is this secret right for
// this subject, and what may the subject do". Subject records themselves
// are managed by the HR admin surface, not here.
package directory

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Subject is an employee or service account that can log in.
type Subject struct {
	ID           string
	Role         string
	Permissions  []string
	PasswordHash []byte
	Active       bool
}

var (
	// ErrInvalidCredentials covers unknown ids, wrong secrets and inactive
	// subjects alike.
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
	ErrInvalidArgument    = errors.New("directory: invalid argument")
)

// dummyHash is compared against when the subject is unknown so both paths
// cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-secret"), bcrypt.DefaultCost)

// HashSecret hashes a secret for storage.
func HashSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrInvalidArgument
	}
	return bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
}

func verify(s Subject, found bool, secret string) (Subject, error) {
	hash := dummyHash
	if found {
		hash = s.PasswordHash
	}
	err := bcrypt.CompareHashAndPassword(hash, []byte(secret))
	if !found || err != nil || !s.Active {
		return Subject{}, ErrInvalidCredentials
	}
	s.PasswordHash = nil
	return s, nil
}
