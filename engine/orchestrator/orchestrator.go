// Package orchestrator sequences the keystore, funding and transfer steps of a run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	sollib "github.com/gagliardetto/solana-go"
	"github.com/segmentio/ksuid"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/keystore"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/transfer"
	"github.com/smartcontractkit/solana-fund-transfer/pkg/logger"
)

// IdentityLoader provides the sender identity. Implemented by *keystore.KeyStore.
type IdentityLoader interface {
	LoadOrCreateIdentity(source keystore.ConfigSource) (keystore.Identity, error)
}

// Funder tops up the sender. Implemented by *funding.Gate.
type Funder interface {
	EnsureMinimumBalance(ctx context.Context, id keystore.Identity, minLamports uint64) error
}

// Transferer submits the transfer. Implemented by *transfer.Pipeline.
type Transferer interface {
	Transfer(ctx context.Context, req transfer.Request) (*transfer.Receipt, error)
}

// NetworkVerifier checks the RPC node serves the expected cluster. Implemented by solana.Chain.
type NetworkVerifier interface {
	VerifyGenesis(ctx context.Context) error
}

var (
	_ NetworkVerifier = solana.Chain{}
	_ IdentityLoader  = (*keystore.KeyStore)(nil)
)

// Deps are the components a run is composed of. Network is optional.
type Deps struct {
	KeyStore IdentityLoader
	Funder   Funder
	Transfer Transferer
	Network  NetworkVerifier
}

func (d Deps) validate() error {
	if d.KeyStore == nil {
		return errors.New("keystore is required")
	}
	if d.Funder == nil {
		return errors.New("funder is required")
	}
	if d.Transfer == nil {
		return errors.New("transfer pipeline is required")
	}

	return nil
}

// Config holds the fixed parameters of every run.
type Config struct {
	// MinBalanceLamports is the balance the sender is topped up to before transferring.
	MinBalanceLamports uint64
}

// Outcome is the terminal result of a run.
type Outcome struct {
	RunID    string
	State    State
	Trace    []State
	Identity sollib.PublicKey
	Receipt  *transfer.Receipt
	Err      error
}

// ExitCode is 0 for a run that reached StateDone and 1 otherwise.
func (o Outcome) ExitCode() int {
	if o.State == StateDone && o.Err == nil {
		return 0
	}

	return 1
}

// Orchestrator runs Start -> IdentityReady -> Funded -> Transferred -> Done, moving to Failed
// on the first error. Nothing is rolled back: confirmed transactions are final.
type Orchestrator struct {
	lggr logger.Logger
	deps Deps
	cfg  Config
}

// New creates an Orchestrator.
func New(lggr logger.Logger, deps Deps, cfg Config) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator deps: %w", err)
	}

	return &Orchestrator{
		lggr: lggr.Named("orchestrator"),
		deps: deps,
		cfg:  cfg,
	}, nil
}

// run holds the mutable state of a single Run call.
type run struct {
	lggr    logger.Logger
	outcome Outcome
}

func (r *run) advance() {
	to := next[r.outcome.State]
	r.lggr.Debugw("State transition", "from", r.outcome.State, "to", to)
	r.outcome.State = to
	r.outcome.Trace = append(r.outcome.Trace, to)
}

func (r *run) fail(err error) Outcome {
	failedIn := r.outcome.State
	r.outcome.Err = &StepError{State: failedIn, Err: err}
	r.outcome.State = StateFailed
	r.outcome.Trace = append(r.outcome.Trace, StateFailed)
	r.lggr.Errorw("Run failed", "state", failedIn, "kind", ErrorKind(err), "error", err)

	return r.outcome
}

// Run loads the identity from source, funds it and transfers lamports to recipient.
func (o *Orchestrator) Run(
	ctx context.Context, source keystore.ConfigSource, recipient sollib.PublicKey, lamports uint64,
) Outcome {
	runID := ksuid.New().String()
	r := &run{
		lggr: o.lggr.With("run_id", runID),
		outcome: Outcome{
			RunID: runID,
			State: StateStart,
			Trace: []State{StateStart},
		},
	}

	// Start: parameters and network are checked before anything is written or requested.
	if lamports == 0 {
		return r.fail(fmt.Errorf("%w: transfer amount must be positive", transfer.ErrInvalidAmount))
	}
	if recipient.IsZero() {
		return r.fail(fmt.Errorf("%w: recipient is the zero public key", transfer.ErrInvalidRecipient))
	}
	if o.deps.Network != nil {
		if err := o.deps.Network.VerifyGenesis(ctx); err != nil {
			return r.fail(err)
		}
	}

	id, err := o.deps.KeyStore.LoadOrCreateIdentity(source)
	if err != nil {
		return r.fail(err)
	}
	r.outcome.Identity = id.PublicKey()
	r.lggr.Infow("Public key", "publicKey", id.PublicKey().String())
	r.advance()

	if err = o.deps.Funder.EnsureMinimumBalance(ctx, id, o.cfg.MinBalanceLamports); err != nil {
		return r.fail(err)
	}
	r.advance()

	req, err := transfer.NewRequest(id, recipient, lamports)
	if err != nil {
		return r.fail(err)
	}
	receipt, err := o.deps.Transfer.Transfer(ctx, req)
	r.outcome.Receipt = receipt
	if err != nil {
		return r.fail(err)
	}
	r.advance()

	r.advance()
	r.lggr.Infow("Finished successfully", "signature", receipt.Signature.String(), "url", receipt.ExplorerURL)

	return r.outcome
}
