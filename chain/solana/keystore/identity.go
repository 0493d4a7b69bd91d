package keystore

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	sollib "github.com/gagliardetto/solana-go"
)

// Identity is the keypair that signs for the sender account.
//
// The secret half is only reachable through PrivateKey and Signer; String, GoString and every
// fmt verb render the public key so that an Identity is safe to log.
type Identity struct {
	key sollib.PrivateKey
}

// NewIdentity validates key and wraps it in an Identity. The key must be 64 bytes and its public
// half must be the key derived from its seed half.
func NewIdentity(key sollib.PrivateKey) (Identity, error) {
	if len(key) != ed25519.PrivateKeySize {
		return Identity{}, fmt.Errorf("%w: secret key must be %d bytes, got %d",
			ErrInvalidKeyMaterial, ed25519.PrivateKeySize, len(key))
	}

	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
		return Identity{}, fmt.Errorf("%w: public key does not match secret key", ErrInvalidKeyMaterial)
	}

	return Identity{key: append(sollib.PrivateKey(nil), key...)}, nil
}

// PublicKey returns the account address of the identity.
func (i Identity) PublicKey() sollib.PublicKey {
	if len(i.key) == 0 {
		return sollib.PublicKey{}
	}

	return i.key.PublicKey()
}

// PrivateKey returns a copy of the secret key.
func (i Identity) PrivateKey() sollib.PrivateKey {
	return append(sollib.PrivateKey(nil), i.key...)
}

// IsZero reports whether the identity holds no key.
func (i Identity) IsZero() bool {
	return len(i.key) == 0
}

// Signer returns a key getter for Transaction.Sign that only answers for this identity.
func (i Identity) Signer() func(sollib.PublicKey) *sollib.PrivateKey {
	pub := i.PublicKey()

	return func(key sollib.PublicKey) *sollib.PrivateKey {
		if !key.Equals(pub) {
			return nil
		}
		priv := i.PrivateKey()

		return &priv
	}
}

// String returns the base58 public key.
func (i Identity) String() string {
	return i.PublicKey().String()
}

// GoString keeps %#v from dumping the secret.
func (i Identity) GoString() string {
	return fmt.Sprintf("keystore.Identity{PublicKey: %s}", i.PublicKey())
}

// Format implements fmt.Formatter so that no verb can print the secret bytes.
func (i Identity) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		_, _ = fmt.Fprint(f, i.GoString())
		return
	}
	_, _ = fmt.Fprint(f, i.String())
}
