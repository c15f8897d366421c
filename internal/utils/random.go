package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// VerificationTokenBytes is the entropy of an email-verification token.
const VerificationTokenBytes = 32

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
