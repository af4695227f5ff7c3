package identity

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// tests swap in a cheaper parameter set
var hashParams = argon2id.DefaultParams

func HashPassword(password string) (string, error) {
	h, err := argon2id.CreateHash(password, hashParams)
	if err != nil {
		return "", fmt.Errorf("hash_password: %w", err)
	}
	return h, nil
}

// VerifyPassword returns ErrInvalidCredentials on mismatch or a malformed hash.
func VerifyPassword(password, hash string) error {
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	return nil
}
