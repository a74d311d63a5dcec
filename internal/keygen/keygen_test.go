package keygen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func TestGenerateLengthAndAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		key := Generate()

		assert.Len(t, key, KeyLength)
		for _, symbol := range key {
			assert.True(
				t,
				strings.ContainsRune(alphabet, symbol),
				"the generated key should contain only [a-zA-Z0-9] symbols, got %q",
				key,
			)
		}
	}
}

func TestGenerateSpread(t *testing.T) {
	// Two calls are not required to differ, so no strict inequality here;
	// a run of 1000 keys collapsing to a handful of values would still
	// indicate a broken generator.
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		seen[Generate()] = true
	}

	assert.Greater(t, len(seen), 900)
}
