package cryptox_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"testing"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPEM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		keyType string
		bits    int
		check   func(t *testing.T, key any)
	}{
		{cryptox.KeyTypeRSA, 2048, func(t *testing.T, key any) {
			k, ok := key.(*rsa.PrivateKey)
			require.True(t, ok)
			require.Equal(t, 2048, k.N.BitLen())
		}},
		{cryptox.KeyTypeP256, 0, func(t *testing.T, key any) {
			k, ok := key.(*ecdsa.PrivateKey)
			require.True(t, ok)
			require.Equal(t, "P-256", k.Curve.Params().Name)
		}},
		{cryptox.KeyTypeEd25519, 0, func(t *testing.T, key any) {
			_, ok := key.(ed25519.PrivateKey)
			require.True(t, ok)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.keyType, func(t *testing.T) {
			t.Parallel()

			pemBytes, err := cryptox.GenerateKeyPEM(tt.keyType, tt.bits)
			require.NoError(t, err)
			require.Contains(t, string(pemBytes), "BEGIN PRIVATE KEY")

			signer, err := cryptox.ParsePrivateKeyPEM(pemBytes)
			require.NoError(t, err)
			tt.check(t, signer)
		})
	}
}

func TestGenerateKeyPEMRejects(t *testing.T) {
	t.Parallel()

	_, err := cryptox.GenerateKeyPEM(cryptox.KeyTypeRSA, 1024)
	require.Error(t, err)

	_, err = cryptox.GenerateKeyPEM("DSA", 0)
	require.Error(t, err)

	_, err = cryptox.ParsePrivateKeyPEM([]byte("nope"))
	require.Error(t, err)
}
