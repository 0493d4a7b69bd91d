package keystore

import (
	"bytes"
	"testing"

	sollib "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PrivateKeyFromBase58(t *testing.T) {
	t.Parallel()

	// Generate a random private key for testing
	privateKey, err := sollib.NewRandomPrivateKey()
	require.NoError(t, err)

	tests := []struct {
		name           string
		givePrivateKey string
		wantAddr       string
		wantErr        string
	}{
		{
			name:           "valid private key",
			givePrivateKey: privateKey.String(),
			wantAddr:       privateKey.PublicKey().String(),
		},
		{
			name:           "invalid private key",
			givePrivateKey: "invalid_private_key",
			wantErr:        "invalid key material",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := PrivateKeyFromBase58(tt.givePrivateKey).Generate()

			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				assert.NotContains(t, err.Error(), tt.givePrivateKey)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAddr, got.PublicKey().String())
			}
		})
	}
}

func Test_PrivateKeyRandom(t *testing.T) {
	t.Parallel()

	a, err := PrivateKeyRandom().Generate()
	require.NoError(t, err)
	b, err := PrivateKeyRandom().Generate()
	require.NoError(t, err)

	assert.True(t, a.IsValid())
	assert.NotEqual(t, a.PublicKey(), b.PublicKey())
}

func Test_PrivateKeyFromSeed(t *testing.T) {
	t.Parallel()

	seed := bytes.Repeat([]byte{7}, 32)

	a, err := PrivateKeyFromSeed(seed).Generate()
	require.NoError(t, err)
	b, err := PrivateKeyFromSeed(seed).Generate()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = PrivateKeyFromSeed([]byte{1, 2, 3}).Generate()
	require.ErrorIs(t, err, ErrInvalidKeyMaterial)
}
