package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateFakeUserID returns a synthetic counterpart identity for
// simulated matches, e.g. "fake-4F2A91C3".
func GenerateFakeUserID() string {
	code, err := GenerateCode(8)
	if err != nil {
		return "fake-unknown"
	}
	return "fake-" + strings.ToLower(code)
}
