package config

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPasswordConfig(t *testing.T) {
	for _, cost := range []int{10, 12, 14} {
		cfg, err := NewPasswordConfig(cost, "")
		require.NoError(t, err)
		assert.Equal(t, cost, cfg.BcryptCost)
	}
	for _, cost := range []int{0, 9, 15, -1} {
		_, err := NewPasswordConfig(cost, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bcrypt cost out of range")
	}
}

func TestPasswordConfig_HashAndVerify(t *testing.T) {
	cfg, err := NewPasswordConfig(10, "")
	require.NoError(t, err)

	hash, err := cfg.HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$10$"))
	assert.True(t, cfg.VerifyPassword("correct horse", hash))
	assert.False(t, cfg.VerifyPassword("wrong horse", hash))
	assert.False(t, cfg.VerifyPassword("correct horse", "not-a-hash"))

	again, err := cfg.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ")
}

func TestPasswordConfig_Pepper(t *testing.T) {
	peppered, err := NewPasswordConfig(10, "pepper-1")
	require.NoError(t, err)
	rotated, err := NewPasswordConfig(10, "pepper-2")
	require.NoError(t, err)
	plain, err := NewPasswordConfig(10, "")
	require.NoError(t, err)

	hash, err := peppered.HashPassword("secret")
	require.NoError(t, err)
	assert.True(t, peppered.VerifyPassword("secret", hash))
	assert.False(t, rotated.VerifyPassword("secret", hash))
	assert.False(t, plain.VerifyPassword("secret", hash))
}

func TestPasswordConfig_TooLong(t *testing.T) {
	cfg, err := NewPasswordConfig(10, "")
	require.NoError(t, err)

	_, err = cfg.HashPassword(strings.Repeat("a", 73))
	assert.Error(t, err)
}

func TestPasswordConfig_ConcurrentAccess(t *testing.T) {
	cfg, err := NewPasswordConfig(10, "pepper")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pw := strings.Repeat("x", i+8)
			hash, err := cfg.HashPassword(pw)
			assert.NoError(t, err)
			assert.True(t, cfg.VerifyPassword(pw, hash))
		}()
	}
	wg.Wait()
}

func TestConfig_Password(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{BcryptCost: 11, PasswordPepper: "p"}}
	pw, err := cfg.Password()
	require.NoError(t, err)
	assert.Equal(t, 11, pw.BcryptCost)
	assert.Equal(t, "p", pw.Pepper)
}
