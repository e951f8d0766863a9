package krypto

import (
	"crypto/rand"
	"fmt"
)

// genRandomBytes returns n bytes from the operating system CSPRNG.
func genRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}

	return b, nil
}
