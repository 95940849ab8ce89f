package accounts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"abc", "alice_01", "bob-smith", strings.Repeat("a", 20)}
	for _, s := range valid {
		assert.NoError(t, ValidateUsername(s), s)
	}

	invalid := []string{"", "ab", strings.Repeat("a", 21), "al ice", "alice!", "алиса"}
	for _, s := range invalid {
		assert.Error(t, ValidateUsername(s), s)
	}
}

func TestValidatePin(t *testing.T) {
	for _, s := range []string{"1234", "00000000", "123456"} {
		assert.NoError(t, ValidatePin(s), s)
	}
	for _, s := range []string{"", "123", "123456789", "12a4", "12 34"} {
		assert.Error(t, ValidatePin(s), s)
	}
}

func TestGenerateSalt(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		salt, err := GenerateSalt()
		require.NoError(t, err)
		assert.Len(t, salt, SaltLength)
		assert.False(t, seen[salt], "соль повторилась")
		seen[salt] = true
	}
}

func TestHasherDeriveIsDeterministic(t *testing.T) {
	h := fastHasher()

	a := h.Derive("1234", "0011223344556677")
	b := h.Derive("1234", "0011223344556677")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "$argon2id$v=19$m=64,t=1,p=1$"))

	assert.NotEqual(t, a, h.Derive("1234", "7766554433221100"), "другая соль — другой хеш")
	assert.NotEqual(t, a, h.Derive("1235", "0011223344556677"), "другой PIN — другой хеш")
}

func TestHasherVerify(t *testing.T) {
	h := fastHasher()
	salt := "a1b2c3d4e5f60718"
	encoded := h.Derive("4321", salt)

	assert.True(t, h.Verify("4321", salt, encoded))
	assert.False(t, h.Verify("4322", salt, encoded))
	assert.False(t, h.Verify("4321", "0000000000000000", encoded))
}

func TestHasherVerifyUsesStoredParams(t *testing.T) {
	old := NewHasher(HashParams{Memory: 32, Iterations: 2, Parallelism: 1, KeyLength: 16})
	encoded := old.Derive("1111", "ffffffffffffffff")

	assert.True(t, fastHasher().Verify("1111", "ffffffffffffffff", encoded))
}

func TestHasherVerifyRejectsGarbage(t *testing.T) {
	h := fastHasher()
	for _, encoded := range []string{"", "plain", "$argon2i$v=19$m=64,t=1,p=1$AAAA", "$argon2id$v=19$bad$AAAA", "$argon2id$v=19$m=64,t=1,p=1$!!!"} {
		assert.False(t, h.Verify("1234", "0011223344556677", encoded), encoded)
	}
}
