// Package keygen produces the random short codes that identify links.
// The generator gives no uniqueness guarantee; checking a generated code
// against existing ones is the caller's responsibility.
package keygen

import (
	"crypto/rand"
	"math/big"
)

const (
	// KeyLength is the number of characters in a generated code.
	KeyLength = 6

	symbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generate returns a KeyLength-character string drawn uniformly at random
// from [a-zA-Z0-9], independently on each call.
func Generate() string {
	result := make([]byte, 0, KeyLength)
	for i := 0; i < KeyLength; i++ {
		randomIndex, err := rand.Int(rand.Reader, big.NewInt(int64(len(symbols))))
		if err != nil {
			// crypto/rand.Reader does not fail on supported platforms.
			panic(err)
		}
		result = append(result, symbols[randomIndex.Int64()])
	}

	return string(result)
}
