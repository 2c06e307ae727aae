package cryptox_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	cryptox.SetPepper("unit-test-pepper")

	tests := []struct {
		name   string
		secret string
	}{
		{"simple", "password123"},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"long", strings.Repeat("a", 128)},
		{"empty", ""},
		{"unicode", "пароль🔒密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := cryptox.HashSecret(tt.secret)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

			require.NoError(t, cryptox.VerifySecret(tt.secret, hash))
			require.ErrorIs(t, cryptox.VerifySecret(tt.secret+"x", hash), cryptox.ErrSecretMismatch)
		})
	}
}

func TestHashSecretUsesFreshSalt(t *testing.T) {
	cryptox.SetPepper("unit-test-pepper")

	a, err := cryptox.HashSecret("same")
	require.NoError(t, err)
	b, err := cryptox.HashSecret("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifySecretMalformed(t *testing.T) {
	for _, h := range []string{
		"",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA",
	} {
		require.ErrorIs(t, cryptox.VerifySecret("x", h), cryptox.ErrMalformedHash, h)
	}
}

func TestLoadPepperPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pepper")

	require.NoError(t, cryptox.LoadPepper(path))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	hash, err := cryptox.HashSecret("s3cret")
	require.NoError(t, err)

	// Reloading must reuse the stored pepper or existing hashes break.
	require.NoError(t, cryptox.LoadPepper(path))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.NoError(t, cryptox.VerifySecret("s3cret", hash))
}
