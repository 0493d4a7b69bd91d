package keystore

import (
	"crypto/ed25519"
	"fmt"

	sollib "github.com/gagliardetto/solana-go"
)

// PrivateKeyGenerator creates the secret key for a new identity.
type PrivateKeyGenerator interface {
	// Generate creates a new Solana keypair and returns the private key
	Generate() (sollib.PrivateKey, error)
}

var (
	_ PrivateKeyGenerator = (*privateKeyRandom)(nil)
	_ PrivateKeyGenerator = (*privateKeyFromSeed)(nil)
	_ PrivateKeyGenerator = (*privateKeyFromBase58)(nil)
)

// PrivateKeyRandom returns a generator that creates keys from the operating system's secure
// random source.
func PrivateKeyRandom() PrivateKeyGenerator {
	return &privateKeyRandom{}
}

type privateKeyRandom struct{}

// Generate generates a new random Solana keypair and returns the private key.
func (g *privateKeyRandom) Generate() (sollib.PrivateKey, error) {
	privKey, err := sollib.NewRandomPrivateKey()
	if err != nil {
		return sollib.PrivateKey{}, fmt.Errorf("failed to generate random private key: %w", err)
	}

	return privKey, nil
}

// PrivateKeyFromSeed returns a generator that derives the key from a 32 byte ed25519 seed. The
// same seed always yields the same identity.
func PrivateKeyFromSeed(seed []byte) PrivateKeyGenerator {
	return &privateKeyFromSeed{seed: append([]byte(nil), seed...)}
}

type privateKeyFromSeed struct {
	seed []byte
}

// Generate derives the Solana keypair from the seed and returns the private key.
func (g *privateKeyFromSeed) Generate() (sollib.PrivateKey, error) {
	if len(g.seed) != ed25519.SeedSize {
		return sollib.PrivateKey{}, fmt.Errorf("%w: seed must be %d bytes, got %d",
			ErrInvalidKeyMaterial, ed25519.SeedSize, len(g.seed))
	}

	return sollib.PrivateKey(ed25519.NewKeyFromSeed(g.seed)), nil
}

// PrivateKeyFromBase58 returns a generator that imports an existing base58 encoded private key,
// as printed by most Solana wallets.
func PrivateKeyFromBase58(privateKey string) PrivateKeyGenerator {
	return &privateKeyFromBase58{privateKey: privateKey}
}

type privateKeyFromBase58 struct {
	privateKey string
}

// Generate parses the base58 encoded private key.
func (g *privateKeyFromBase58) Generate() (sollib.PrivateKey, error) {
	return decodeSecret(g.privateKey)
}
