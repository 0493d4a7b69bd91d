// Package funding tops up the sender account from the cluster faucet before a transfer.
package funding

import (
	"context"
	"errors"
	"fmt"

	sollib "github.com/gagliardetto/solana-go"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/keystore"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
	"github.com/smartcontractkit/solana-fund-transfer/pkg/logger"
)

const (
	// DefaultAirdropLamports is the amount requested per airdrop.
	DefaultAirdropLamports = sollib.LAMPORTS_PER_SOL
	// DefaultMaxAirdropLamports is the devnet faucet cap per request. Larger requests are refused
	// by the faucet.
	DefaultMaxAirdropLamports = 2 * sollib.LAMPORTS_PER_SOL
)

var (
	// ErrAirdropTimeout is returned when the airdrop is not confirmed before the blockhash fetched
	// at request time expires.
	ErrAirdropTimeout = errors.New("airdrop not confirmed in time")
	// ErrAirdropFailed is returned when the faucet refuses the request or the airdrop transaction
	// fails on chain.
	ErrAirdropFailed = errors.New("airdrop failed")
)

// Config configures a Gate. Zero values select the defaults.
type Config struct {
	// AirdropLamports is requested when the balance is below the minimum.
	AirdropLamports uint64
	// MaxAirdropLamports caps AirdropLamports.
	MaxAirdropLamports uint64
	// RPCOpts tune retries and confirmation polling.
	RPCOpts []rpcclient.Opt
}

// Gate makes sure an account holds a minimum balance by requesting airdrops.
type Gate struct {
	lggr   logger.Logger
	client rpcclient.Client
	cfg    Config
}

// NewGate creates a Gate using client for every RPC round trip.
func NewGate(lggr logger.Logger, client rpcclient.Client, cfg Config) *Gate {
	if cfg.MaxAirdropLamports == 0 {
		cfg.MaxAirdropLamports = DefaultMaxAirdropLamports
	}
	if cfg.AirdropLamports == 0 {
		cfg.AirdropLamports = DefaultAirdropLamports
	}

	return &Gate{
		lggr:   lggr.Named("funding"),
		client: client,
		cfg:    cfg,
	}
}

// EnsureMinimumBalance requests one airdrop when the balance of id is below minLamports and
// waits for it to be confirmed. It does nothing when the balance is already sufficient, so it
// is safe to call before every transfer.
//
// A single airdrop is requested even when it cannot cover the gap to minLamports; the resulting
// balance is logged but not re-checked.
func (g *Gate) EnsureMinimumBalance(ctx context.Context, id keystore.Identity, minLamports uint64) error {
	pub := id.PublicKey()

	balance, err := rpcclient.GetBalance(ctx, g.client, pub, g.cfg.RPCOpts...)
	if err != nil {
		return fmt.Errorf("failed to query balance: %w", err)
	}
	g.lggr.Infow("Current balance", "publicKey", pub.String(), "sol", solana.FormatSOL(balance))

	if balance >= minLamports {
		return nil
	}

	amount := g.cfg.AirdropLamports
	if amount > g.cfg.MaxAirdropLamports {
		g.lggr.Warnw("Airdrop amount exceeds faucet cap, requesting the cap instead",
			"requestedSol", solana.FormatSOL(amount),
			"capSol", solana.FormatSOL(g.cfg.MaxAirdropLamports))
		amount = g.cfg.MaxAirdropLamports
	}

	g.lggr.Infow("Airdropping", "sol", solana.FormatSOL(amount))
	// Not retried: a request that errored may still have been granted.
	sig, err := g.client.RequestAirdrop(ctx, pub, amount, solana.SolDefaultCommitment)
	if err != nil {
		return fmt.Errorf("%w: request for %s SOL: %w", ErrAirdropFailed, solana.FormatSOL(amount), err)
	}

	window, err := rpcclient.LatestValidityWindow(ctx, g.client, g.cfg.RPCOpts...)
	if err != nil {
		return err
	}

	if _, err = rpcclient.WaitForConfirmation(ctx, g.client, sig, window, g.cfg.RPCOpts...); err != nil {
		switch {
		case errors.Is(err, rpcclient.ErrBlockhashExpired), errors.Is(err, rpcclient.ErrNotConfirmed):
			return fmt.Errorf("%w: %w", ErrAirdropTimeout, err)
		case errors.Is(err, rpcclient.ErrTransactionFailed):
			return fmt.Errorf("%w: %w", ErrAirdropFailed, err)
		default:
			return fmt.Errorf("failed to confirm airdrop %s: %w", sig, err)
		}
	}
	g.lggr.Infow("Airdrop confirmed", "signature", sig.String())

	newBalance, err := rpcclient.GetBalance(ctx, g.client, pub, g.cfg.RPCOpts...)
	if err != nil {
		return fmt.Errorf("failed to query balance after airdrop: %w", err)
	}
	g.lggr.Infow("New balance", "sol", solana.FormatSOL(newBalance))

	if newBalance < minLamports {
		g.lggr.Warnw("Balance still below minimum after airdrop",
			"sol", solana.FormatSOL(newBalance),
			"minSol", solana.FormatSOL(minLamports))
	}

	return nil
}
