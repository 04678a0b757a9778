package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// cost matches the work factor the legacy service used for all stored hashes.
const cost = 12

var ErrHash = errors.New("hash failure")

func HashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHash, err)
	}
	return string(hashBytes), nil
}

// CheckPassword reports whether password matches hash. A wrong password is
// not an error, it is just false.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
