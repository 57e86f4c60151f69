package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"eventhub/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

type bcryptHasher struct {
	cost   int
	pepper string
}

// NewBcryptHasher returns a PasswordHasher that bcrypts the hex SHA256 of
// pepper+password. Pre-hashing keeps long passwords under bcrypt's 72 byte
// input limit.
func NewBcryptHasher(cost int, pepper string) domain.PasswordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost, pepper: pepper}
}

func (h *bcryptHasher) prehash(password string) []byte {
	sum := sha256.Sum256([]byte(h.pepper + password))
	return []byte(hex.EncodeToString(sum[:]))
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(h.prehash(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (h *bcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), h.prehash(password))
}
