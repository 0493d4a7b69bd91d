package solana

import (
	"fmt"

	sollib "github.com/gagliardetto/solana-go"
)

// ParsePublicKey converts a Solana address string to a public key.
// Solana addresses are base58-encoded public keys (32 bytes).
func ParsePublicKey(address string) (sollib.PublicKey, error) {
	pubkey, err := sollib.PublicKeyFromBase58(address)
	if err != nil {
		return sollib.PublicKey{}, fmt.Errorf("invalid Solana address format: %s, error: %w", address, err)
	}

	return pubkey, nil
}

// AddressToBytes converts a Solana address string to bytes.
func AddressToBytes(address string) ([]byte, error) {
	pubkey, err := ParsePublicKey(address)
	if err != nil {
		return nil, err
	}

	return pubkey.Bytes(), nil
}
