package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// recoveryCharset is a Crockford-style alphabet: uppercase alphanumerics with
// the easily-confused I, L, O and U removed. Codes are compared
// case-insensitively, so NormalizeRecoveryCode must be applied before
// fingerprinting on both the issue and verify paths.
const recoveryCharset = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// GenerateRecoveryCode creates a fixed-length random recovery code.
func GenerateRecoveryCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("recovery code length must be positive, got %d", length)
	}

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(recoveryCharset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate recovery code: %w", err)
		}
		code[i] = recoveryCharset[n.Int64()]
	}
	return string(code), nil
}

// NormalizeRecoveryCode canonicalizes user input for comparison: trims
// whitespace and upper-cases, so "abcd-..." and "ABCD-..." fingerprint
// identically.
func NormalizeRecoveryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
