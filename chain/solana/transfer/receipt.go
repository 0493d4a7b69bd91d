package transfer

import (
	sollib "github.com/gagliardetto/solana-go"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
)

// Status is the confirmation state of a submitted transfer.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Receipt describes a submitted transfer.
type Receipt struct {
	Signature   sollib.Signature
	Status      Status
	Slot        uint64
	Sender      sollib.PublicKey
	Recipient   sollib.PublicKey
	Lamports    uint64
	ExplorerURL string
}

// receiptYAML is the serialised form of a Receipt.
type receiptYAML struct {
	Signature   string `yaml:"signature"`
	Status      Status `yaml:"status"`
	Slot        uint64 `yaml:"slot,omitempty"`
	Sender      string `yaml:"sender"`
	Recipient   string `yaml:"recipient"`
	Lamports    uint64 `yaml:"lamports"`
	SOL         string `yaml:"sol"`
	ExplorerURL string `yaml:"explorer_url,omitempty"`
}

// MarshalYAML renders keys and signatures in base58 rather than as byte arrays.
func (r Receipt) MarshalYAML() (any, error) {
	return receiptYAML{
		Signature:   r.Signature.String(),
		Status:      r.Status,
		Slot:        r.Slot,
		Sender:      r.Sender.String(),
		Recipient:   r.Recipient.String(),
		Lamports:    r.Lamports,
		SOL:         solana.FormatSOL(r.Lamports),
		ExplorerURL: r.ExplorerURL,
	}, nil
}
