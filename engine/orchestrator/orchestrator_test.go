package orchestrator_test

import (
	"context"
	"testing"
	"time"

	sollib "github.com/gagliardetto/solana-go"
	chain_selectors "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/funding"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/keystore"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/transfer"
	"github.com/smartcontractkit/solana-fund-transfer/engine/orchestrator"
	"github.com/smartcontractkit/solana-fund-transfer/internal/testing/solfake"
	"github.com/smartcontractkit/solana-fund-transfer/pkg/logger"
)

var fastOpts = []rpcclient.Opt{
	rpcclient.WithRetry(2, time.Millisecond),
	rpcclient.WithPolling(time.Millisecond, 50),
}

type env struct {
	ledger *solfake.Ledger
	chain  solana.Chain
	deps   orchestrator.Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()

	ledger := solfake.New()
	ledger.ConfirmAfterPolls = 1
	ledger.Genesis = sollib.MustHashFromBase58(chain_selectors.SOLANA_DEVNET.ChainID)

	chain := solana.Chain{
		Selector: chain_selectors.SOLANA_DEVNET.Selector,
		Client:   ledger,
	}
	lggr := logger.Test(t)

	return &env{
		ledger: ledger,
		chain:  chain,
		deps: orchestrator.Deps{
			KeyStore: keystore.New(lggr),
			Funder:   funding.NewGate(lggr, ledger, funding.Config{RPCOpts: fastOpts}),
			Transfer: transfer.NewPipeline(lggr, chain, fastOpts...),
			Network:  chain,
		},
	}
}

func (e *env) run(t *testing.T, source keystore.ConfigSource, recipient sollib.PublicKey, lamports uint64) orchestrator.Outcome {
	t.Helper()

	o, err := orchestrator.New(logger.Test(t), e.deps, orchestrator.Config{
		MinBalanceLamports: sollib.LAMPORTS_PER_SOL,
	})
	require.NoError(t, err)

	return o.Run(t.Context(), source, recipient, lamports)
}

func Test_Run_FreshIdentity(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	source := keystore.NewMemorySource(nil)
	recipient := sollib.NewWallet().PublicKey()

	out := e.run(t, source, recipient, 100_000_000)
	require.NoError(t, out.Err)

	assert.Equal(t, orchestrator.StateDone, out.State)
	assert.Equal(t, 0, out.ExitCode())
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, []orchestrator.State{
		orchestrator.StateStart,
		orchestrator.StateIdentityReady,
		orchestrator.StateFunded,
		orchestrator.StateTransferred,
		orchestrator.StateDone,
	}, out.Trace)

	require.NotNil(t, out.Receipt)
	assert.Equal(t, transfer.StatusConfirmed, out.Receipt.Status)
	assert.Equal(t, out.Identity, out.Receipt.Sender)
	assert.Equal(t, []uint64{sollib.LAMPORTS_PER_SOL}, e.ledger.Airdrops())
	assert.Equal(t, uint64(100_000_000), e.ledger.Balance(recipient))
	assert.Equal(t, 1, source.Writes())

	// A second run reuses the persisted identity.
	again := e.run(t, source, recipient, 100_000_000)
	require.NoError(t, again.Err)
	assert.Equal(t, out.Identity, again.Identity)
	assert.NotEqual(t, out.RunID, again.RunID)
	assert.Equal(t, 1, source.Writes())
}

func Test_Run_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		giveEnv      func(e *env)
		giveSource   map[string]string
		giveLamports uint64
		giveZeroTo   bool
		wantKind     string
		wantFailedIn orchestrator.State
		wantTrace    []orchestrator.State
	}{
		{
			name:         "zero amount fails before touching the network",
			giveLamports: 0,
			wantKind:     "InvalidAmount",
			wantFailedIn: orchestrator.StateStart,
			wantTrace:    []orchestrator.State{orchestrator.StateStart, orchestrator.StateFailed},
		},
		{
			name:         "zero recipient",
			giveLamports: 1,
			giveZeroTo:   true,
			wantKind:     "InvalidRecipient",
			wantFailedIn: orchestrator.StateStart,
			wantTrace:    []orchestrator.State{orchestrator.StateStart, orchestrator.StateFailed},
		},
		{
			name:         "malformed persisted key",
			giveSource:   map[string]string{keystore.PrivateKeyKey: "[1,2,3]"},
			giveLamports: 1,
			wantKind:     "InvalidKeyMaterial",
			wantFailedIn: orchestrator.StateStart,
			wantTrace:    []orchestrator.State{orchestrator.StateStart, orchestrator.StateFailed},
		},
		{
			name: "wrong cluster",
			giveEnv: func(e *env) {
				e.ledger.Genesis = sollib.MustHashFromBase58(chain_selectors.SOLANA_MAINNET.ChainID)
			},
			giveLamports: 1,
			wantKind:     "NetworkMismatch",
			wantFailedIn: orchestrator.StateStart,
			wantTrace:    []orchestrator.State{orchestrator.StateStart, orchestrator.StateFailed},
		},
		{
			name: "airdrop never confirms",
			giveEnv: func(e *env) {
				e.ledger.DropAirdrops = true
				e.ledger.ValidityBlocks = 2
			},
			giveLamports: 1,
			wantKind:     "AirdropTimeout",
			wantFailedIn: orchestrator.StateIdentityReady,
			wantTrace: []orchestrator.State{
				orchestrator.StateStart, orchestrator.StateIdentityReady, orchestrator.StateFailed,
			},
		},
		{
			name: "transfer exceeds balance",
			giveEnv: func(e *env) {
				e.ledger.AirdropCap = 50_000_000
				e.deps.Funder = funding.NewGate(logger.Nop(), e.ledger, funding.Config{
					AirdropLamports:    50_000_000,
					MaxAirdropLamports: 50_000_000,
					RPCOpts:            fastOpts,
				})
			},
			giveLamports: 100_000_000,
			wantKind:     "TransferRejected",
			wantFailedIn: orchestrator.StateFunded,
			wantTrace: []orchestrator.State{
				orchestrator.StateStart, orchestrator.StateIdentityReady, orchestrator.StateFunded,
				orchestrator.StateFailed,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEnv(t)
			if tt.giveEnv != nil {
				tt.giveEnv(e)
			}
			recipient := sollib.NewWallet().PublicKey()
			if tt.giveZeroTo {
				recipient = sollib.PublicKey{}
			}
			source := keystore.NewMemorySource(tt.giveSource)

			out := e.run(t, source, recipient, tt.giveLamports)
			require.Error(t, out.Err)

			assert.Equal(t, orchestrator.StateFailed, out.State)
			assert.Equal(t, 1, out.ExitCode())
			assert.Equal(t, tt.wantKind, orchestrator.ErrorKind(out.Err))
			assert.Equal(t, tt.wantTrace, out.Trace)

			var stepErr *orchestrator.StepError
			require.ErrorAs(t, out.Err, &stepErr)
			assert.Equal(t, tt.wantFailedIn, stepErr.State)

			if tt.wantFailedIn == orchestrator.StateStart {
				assert.Equal(t, 0, source.Writes(), "no identity is persisted when start fails")
			}
			assert.Zero(t, e.ledger.Balance(recipient))
		})
	}
}

type stubFunder struct {
	err error
}

func (s stubFunder) EnsureMinimumBalance(context.Context, keystore.Identity, uint64) error {
	return s.err
}

type recordingTransfer struct {
	calls int
}

func (r *recordingTransfer) Transfer(context.Context, transfer.Request) (*transfer.Receipt, error) {
	r.calls++
	return &transfer.Receipt{Status: transfer.StatusConfirmed}, nil
}

func Test_Run_AbortsRemainingSteps(t *testing.T) {
	t.Parallel()

	tr := &recordingTransfer{}
	o, err := orchestrator.New(logger.Test(t), orchestrator.Deps{
		KeyStore: keystore.New(logger.Nop()),
		Funder:   stubFunder{err: funding.ErrAirdropFailed},
		Transfer: tr,
	}, orchestrator.Config{MinBalanceLamports: 1})
	require.NoError(t, err)

	out := o.Run(t.Context(), keystore.NewMemorySource(nil), sollib.NewWallet().PublicKey(), 1)
	require.ErrorIs(t, out.Err, funding.ErrAirdropFailed)
	assert.Equal(t, "AirdropFailed", orchestrator.ErrorKind(out.Err))
	assert.Equal(t, 0, tr.calls)
	assert.Nil(t, out.Receipt)
}

func Test_New_ValidatesDeps(t *testing.T) {
	t.Parallel()

	_, err := orchestrator.New(logger.Nop(), orchestrator.Deps{}, orchestrator.Config{})
	require.ErrorContains(t, err, "keystore is required")
}

func Test_ErrorKind(t *testing.T) {
	t.Parallel()

	assert.Empty(t, orchestrator.ErrorKind(nil))
	assert.Equal(t, "TransferTimeout", orchestrator.ErrorKind(&orchestrator.StepError{
		State: orchestrator.StateFunded, Err: transfer.ErrTransferTimeout,
	}))
	assert.Equal(t, "Cancelled", orchestrator.ErrorKind(context.Canceled))
	assert.Equal(t, "Unknown", orchestrator.ErrorKind(assert.AnError))
}
