// Package keystore owns the lifecycle of the signing identity: generating it on first use,
// persisting the secret to a ConfigSource and restoring it on later runs.
package keystore

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	sollib "github.com/gagliardetto/solana-go"

	"github.com/smartcontractkit/solana-fund-transfer/pkg/logger"
)

// PrivateKeyKey is the ConfigSource key holding the secret key as a JSON array of byte values.
const PrivateKeyKey = "PRIVATE_KEY"

// ErrInvalidKeyMaterial is returned when persisted key material cannot be decoded into a valid
// 64 byte Solana secret key.
var ErrInvalidKeyMaterial = errors.New("invalid key material")

// KeyStore loads or creates the identity of a run.
type KeyStore struct {
	lggr logger.Logger
	gen  PrivateKeyGenerator
}

// Option configures a KeyStore.
type Option func(*KeyStore)

// WithGenerator replaces the random key generator used for new identities.
func WithGenerator(gen PrivateKeyGenerator) Option {
	return func(ks *KeyStore) {
		ks.gen = gen
	}
}

// New returns a KeyStore generating random keys unless configured otherwise.
func New(lggr logger.Logger, opts ...Option) *KeyStore {
	ks := &KeyStore{
		lggr: lggr.Named("keystore"),
		gen:  PrivateKeyRandom(),
	}
	for _, opt := range opts {
		opt(ks)
	}

	return ks
}

// LoadOrCreateIdentity returns the identity stored in source, generating and persisting a new
// one when source has none. A load never writes to source; a generation writes exactly once.
func (ks *KeyStore) LoadOrCreateIdentity(source ConfigSource) (Identity, error) {
	raw, ok, err := source.Get(PrivateKeyKey)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to read %s: %w", PrivateKeyKey, err)
	}

	if ok {
		key, derr := decodeSecret(raw)
		if derr != nil {
			return Identity{}, derr
		}
		id, derr := NewIdentity(key)
		if derr != nil {
			return Identity{}, derr
		}
		ks.lggr.Infow("Loaded existing keypair", "publicKey", id.PublicKey().String())

		return id, nil
	}

	ks.lggr.Info("Generating new keypair")
	key, err := ks.gen.Generate()
	if err != nil {
		return Identity{}, fmt.Errorf("failed to generate keypair: %w", err)
	}
	id, err := NewIdentity(key)
	if err != nil {
		return Identity{}, err
	}

	encoded, err := EncodeSecret(id)
	if err != nil {
		return Identity{}, err
	}
	if err = source.Set(PrivateKeyKey, encoded); err != nil {
		return Identity{}, fmt.Errorf("failed to persist %s: %w", PrivateKeyKey, err)
	}
	ks.lggr.Infow("Persisted new keypair", "publicKey", id.PublicKey().String())

	return id, nil
}

// EncodeSecret renders the secret key as a JSON array of byte values, e.g. "[12,250,...]". This
// is the format of PRIVATE_KEY and of solana-keygen keypair files.
func EncodeSecret(id Identity) (string, error) {
	b := id.PrivateKey()

	// Convert bytes to slice of integers for JSON conversion
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}

	out, err := json.Marshal(ints)
	if err != nil {
		return "", err
	}

	return string(out), nil
}

// decodeSecret parses a JSON byte array, or a base58 string, into a secret key. Errors never
// include the input.
func decodeSecret(raw string) (sollib.PrivateKey, error) {
	raw = strings.TrimSpace(raw)

	var key sollib.PrivateKey
	if strings.HasPrefix(raw, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(raw), &ints); err != nil {
			return nil, fmt.Errorf("%w: secret is not a JSON array of integers", ErrInvalidKeyMaterial)
		}

		key = make(sollib.PrivateKey, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: element %d is not a byte value", ErrInvalidKeyMaterial, i)
			}
			key[i] = byte(v)
		}
	} else {
		decoded, err := sollib.PrivateKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: secret is neither a byte array nor base58", ErrInvalidKeyMaterial)
		}
		key = decoded
	}

	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: secret key must be %d bytes, got %d",
			ErrInvalidKeyMaterial, ed25519.PrivateKeySize, len(key))
	}

	return key, nil
}

// WriteKeypairFile writes the identity in the solana-keygen JSON format so that it can be used
// with the Solana CLI, e.g. `solana balance --keypair <path>`.
func WriteKeypairFile(path string, id Identity) error {
	encoded, err := EncodeSecret(id)
	if err != nil {
		return err
	}

	if err = os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("failed to write keypair to file: %w", err)
	}

	return nil
}
