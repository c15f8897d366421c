package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes and verifies passwords with a fixed work factor.
type BcryptHasher struct {
	Cost int

	// dummy is compared against when no account exists so that an unknown
	// email costs as much as a wrong password.
	dummy func() []byte
}

func NewBcryptHasher(cost int) *BcryptHasher {
	h := &BcryptHasher{Cost: cost}
	h.dummy = sync.OnceValue(func() []byte {
		b, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
		return b
	})
	return h
}

// Hash returns bcrypt hash using the configured cost.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares bcrypt hash and plain password.
func (h *BcryptHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Burn runs a comparison against a throwaway hash and discards the result.
func (h *BcryptHasher) Burn(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy(), []byte(plain))
}
