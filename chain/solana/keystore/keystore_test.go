package keystore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sollib "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/smartcontractkit/solana-fund-transfer/pkg/logger"
)

func Test_LoadOrCreateIdentity_Generates(t *testing.T) {
	t.Parallel()

	source := NewMemorySource(nil)
	ks := New(logger.Test(t))

	id, err := ks.LoadOrCreateIdentity(source)
	require.NoError(t, err)
	assert.False(t, id.IsZero())
	assert.Equal(t, 1, source.Writes())

	raw, ok, err := source.Get(PrivateKeyKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(raw, "["))

	var ints []int
	require.NoError(t, json.Unmarshal([]byte(raw), &ints))
	assert.Len(t, ints, 64)
}

func Test_LoadOrCreateIdentity_ReloadIsStable(t *testing.T) {
	t.Parallel()

	source := NewMemorySource(nil)
	ks := New(logger.Test(t))

	first, err := ks.LoadOrCreateIdentity(source)
	require.NoError(t, err)
	second, err := ks.LoadOrCreateIdentity(source)
	require.NoError(t, err)
	third, err := New(logger.Test(t)).LoadOrCreateIdentity(source)
	require.NoError(t, err)

	assert.Equal(t, first.PublicKey(), second.PublicKey())
	assert.Equal(t, first.PublicKey(), third.PublicKey())
	assert.True(t, bytes.Equal(first.PrivateKey(), third.PrivateKey()))
	assert.Equal(t, 1, source.Writes(), "loads must not write")
}

func Test_LoadOrCreateIdentity_RoundTripProperty(t *testing.T) {
	t.Parallel()

	for i := range 32 {
		seed := bytes.Repeat([]byte{byte(i)}, 32)
		ks := New(logger.Nop(), WithGenerator(PrivateKeyFromSeed(seed)))
		source := NewMemorySource(nil)

		created, err := ks.LoadOrCreateIdentity(source)
		require.NoError(t, err)
		loaded, err := ks.LoadOrCreateIdentity(source)
		require.NoError(t, err)

		require.Equal(t, created.PrivateKey(), loaded.PrivateKey(), "seed %d", i)
		require.Equal(t, created.PublicKey(), loaded.PublicKey(), "seed %d", i)
	}
}

func Test_LoadOrCreateIdentity_AcceptsBase58(t *testing.T) {
	t.Parallel()

	key, err := sollib.NewRandomPrivateKey()
	require.NoError(t, err)

	source := NewMemorySource(map[string]string{PrivateKeyKey: key.String()})
	id, err := New(logger.Nop()).LoadOrCreateIdentity(source)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), id.PublicKey())
	assert.Equal(t, 0, source.Writes())
}

func Test_LoadOrCreateIdentity_InvalidKeyMaterial(t *testing.T) {
	t.Parallel()

	key, err := sollib.NewRandomPrivateKey()
	require.NoError(t, err)
	valid, err := NewIdentity(key)
	require.NoError(t, err)
	encoded, err := EncodeSecret(valid)
	require.NoError(t, err)

	// Flip a byte of the public half so it no longer matches the seed.
	tampered := valid.PrivateKey()
	tampered[63] ^= 0xff
	tamperedInts := make([]int, len(tampered))
	for i, b := range tampered {
		tamperedInts[i] = int(b)
	}
	tamperedJSON, err := json.Marshal(tamperedInts)
	require.NoError(t, err)

	tests := []struct {
		name    string
		give    string
		wantErr string
	}{
		{name: "not json", give: "[1,2,", wantErr: "not a JSON array"},
		{name: "too short", give: "[1,2,3]", wantErr: "must be 64 bytes, got 3"},
		{name: "too long", give: strings.TrimSuffix(encoded, "]") + ",1]", wantErr: "must be 64 bytes, got 65"},
		{name: "out of range", give: "[256" + strings.Repeat(",0", 63) + "]", wantErr: "element 0 is not a byte value"},
		{name: "negative", give: "[0,-1" + strings.Repeat(",0", 62) + "]", wantErr: "element 1 is not a byte value"},
		{name: "mismatched public key", give: string(tamperedJSON), wantErr: "public key does not match"},
		{name: "garbage", give: "not-a-key!", wantErr: "neither a byte array nor base58"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lggr, logs := logger.TestObserved(t, zapcore.DebugLevel)
			source := NewMemorySource(map[string]string{PrivateKeyKey: tt.give})

			_, err := New(lggr).LoadOrCreateIdentity(source)
			require.ErrorIs(t, err, ErrInvalidKeyMaterial)
			require.ErrorContains(t, err, tt.wantErr)
			assert.Equal(t, 0, source.Writes())
			for _, entry := range logs.All() {
				assert.NotContains(t, fmt.Sprint(entry.ContextMap()), tt.give)
			}
		})
	}
}

func Test_LoadOrCreateIdentity_NeverLogsSecret(t *testing.T) {
	t.Parallel()

	lggr, logs := logger.TestObserved(t, zapcore.DebugLevel)
	source := NewMemorySource(nil)

	id, err := New(lggr).LoadOrCreateIdentity(source)
	require.NoError(t, err)
	secret, _, err := source.Get(PrivateKeyKey)
	require.NoError(t, err)

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		assert.NotContains(t, entry.Message, secret)
		assert.NotContains(t, fmt.Sprint(entry.ContextMap()), secret)
	}
	assert.Equal(t, id.PublicKey().String(), logs.FilterMessage("Persisted new keypair").All()[0].ContextMap()["publicKey"])
}

func Test_DotEnvSource_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	ks := New(logger.Test(t))

	created, err := ks.LoadOrCreateIdentity(NewDotEnvSource(path))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "PRIVATE_KEY=["), string(content[:12]))

	loaded, err := ks.LoadOrCreateIdentity(NewDotEnvSource(path))
	require.NoError(t, err)
	assert.Equal(t, created.PrivateKey(), loaded.PrivateKey())
}

func Test_DotEnvSource_PreservesOtherKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RPC_URL=http://localhost:8899\n"), 0o600))

	source := NewDotEnvSource(path)
	_, ok, err := source.Get(PrivateKeyKey)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = New(logger.Nop()).LoadOrCreateIdentity(source)
	require.NoError(t, err)

	got, ok, err := source.Get("RPC_URL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://localhost:8899", got)
}

func Test_WriteKeypairFile(t *testing.T) {
	t.Parallel()

	key, err := sollib.NewRandomPrivateKey()
	require.NoError(t, err)
	id, err := NewIdentity(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, WriteKeypairFile(path, id))

	// solana-go can read solana-keygen files directly.
	got, err := sollib.PrivateKeyFromSolanaKeygenFile(path)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func Test_Identity_Formatting(t *testing.T) {
	t.Parallel()

	key, err := sollib.NewRandomPrivateKey()
	require.NoError(t, err)
	id, err := NewIdentity(key)
	require.NoError(t, err)

	pub := key.PublicKey().String()
	for _, verb := range []string{"%v", "%s", "%+v", "%#v", "%x"} {
		out := fmt.Sprintf(verb, id)
		assert.Contains(t, out, pub, verb)
		assert.NotContains(t, out, key.String(), verb)
	}

	var zero Identity
	assert.True(t, zero.IsZero())
	assert.Equal(t, sollib.PublicKey{}, zero.PublicKey())
}

func Test_Identity_Signer(t *testing.T) {
	t.Parallel()

	key, err := sollib.NewRandomPrivateKey()
	require.NoError(t, err)
	id, err := NewIdentity(key)
	require.NoError(t, err)

	signer := id.Signer()
	require.NotNil(t, signer(key.PublicKey()))
	assert.Equal(t, key, *signer(key.PublicKey()))
	assert.Nil(t, signer(sollib.NewWallet().PublicKey()))
}
