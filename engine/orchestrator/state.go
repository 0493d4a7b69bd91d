package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/funding"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/keystore"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/transfer"
)

// State is a step of a run.
type State string

const (
	StateStart         State = "start"
	StateIdentityReady State = "identity_ready"
	StateFunded        State = "funded"
	StateTransferred   State = "transferred"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// next is the happy path transition table. StateFailed is reachable from every state.
var next = map[State]State{
	StateStart:         StateIdentityReady,
	StateIdentityReady: StateFunded,
	StateFunded:        StateTransferred,
	StateTransferred:   StateDone,
}

// StepError records the state a run was in when a step failed.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ErrorKind names the failure category of err for reporting.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, keystore.ErrInvalidKeyMaterial):
		return "InvalidKeyMaterial"
	case errors.Is(err, funding.ErrAirdropTimeout):
		return "AirdropTimeout"
	case errors.Is(err, funding.ErrAirdropFailed):
		return "AirdropFailed"
	case errors.Is(err, transfer.ErrTransferTimeout):
		return "TransferTimeout"
	case errors.Is(err, transfer.ErrTransferRejected):
		return "TransferRejected"
	case errors.Is(err, transfer.ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, transfer.ErrInvalidRecipient):
		return "InvalidRecipient"
	case errors.Is(err, solana.ErrNetworkMismatch):
		return "NetworkMismatch"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled"
	default:
		return "Unknown"
	}
}
