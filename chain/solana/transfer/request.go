package transfer

import (
	"errors"
	"fmt"

	sollib "github.com/gagliardetto/solana-go"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/keystore"
)

var (
	// ErrInvalidAmount is returned for a zero amount. Amounts are always lamports.
	ErrInvalidAmount = solana.ErrInvalidAmount
	// ErrInvalidRecipient is returned for the zero public key.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrInvalidSender is returned when the request has no sender identity.
	ErrInvalidSender = errors.New("invalid sender")
)

// Request moves Lamports from the Sender account to Recipient. The sender signs and pays the
// fee.
type Request struct {
	Sender    keystore.Identity
	Recipient sollib.PublicKey
	Lamports  uint64
}

// NewRequest returns a validated Request.
func NewRequest(sender keystore.Identity, recipient sollib.PublicKey, lamports uint64) (Request, error) {
	req := Request{Sender: sender, Recipient: recipient, Lamports: lamports}

	return req, req.Validate()
}

// Validate checks the request without contacting the network.
func (r Request) Validate() error {
	if r.Lamports == 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidAmount)
	}
	if r.Sender.IsZero() {
		return ErrInvalidSender
	}
	if r.Recipient.IsZero() {
		return fmt.Errorf("%w: recipient is the zero public key", ErrInvalidRecipient)
	}

	return nil
}
