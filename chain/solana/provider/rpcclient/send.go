package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avast/retry-go/v4"
	sollib "github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// ErrRejected is returned when the node refuses a transaction, most commonly because preflight
// simulation failed (insufficient funds, invalid account).
var ErrRejected = errors.New("transaction rejected by rpc node")

// ValidityWindow is the blockhash a transaction references together with the last block height
// at which that blockhash is still accepted.
type ValidityWindow struct {
	Blockhash            sollib.Hash
	LastValidBlockHeight uint64
}

// LatestValidityWindow fetches the latest blockhash from the Solana RPC client, retrying if
// necessary based on the provided options.
func LatestValidityWindow(ctx context.Context, c Client, opts ...Opt) (ValidityWindow, error) {
	cfg := newConfig(opts...)

	var window ValidityWindow
	err := retry.Do(func() error {
		res, err := c.GetLatestBlockhash(ctx, cfg.Commitment)
		if err != nil {
			return err
		}
		if res == nil || res.Value == nil {
			return errors.New("empty latest blockhash response")
		}
		window = ValidityWindow{
			Blockhash:            res.Value.Blockhash,
			LastValidBlockHeight: res.Value.LastValidBlockHeight,
		}

		return nil
	}, cfg.RetryOpts(ctx)...)
	if err != nil {
		return ValidityWindow{}, fmt.Errorf("error getting latest blockhash: %w", err)
	}

	return window, nil
}

// SendTransaction submits a signed transaction with preflight enabled and returns its
// signature. The signature only means the node accepted the transaction, not that it landed.
//
// JSON-RPC errors are not retried and are reported as ErrRejected, except "Blockhash not found"
// which is a visibility race on the node and is retried.
func SendTransaction(ctx context.Context, c Client, tx *sollib.Transaction, opts ...Opt) (sollib.Signature, error) {
	cfg := newConfig(opts...)
	txOpts := solrpc.TransactionOpts{
		SkipPreflight:       false, // Preflight surfaces insufficient funds before anything lands
		PreflightCommitment: cfg.Commitment,
	}

	var txsig sollib.Signature
	err := retry.Do(func() error {
		var rerr error

		txsig, rerr = c.SendTransactionWithOpts(ctx, tx, txOpts)
		if rerr != nil {
			var rpcErr *jsonrpc.RPCError
			if errors.As(rerr, &rpcErr) {
				if strings.Contains(rpcErr.Message, "Blockhash not found") {
					return fmt.Errorf("blockhash not found, retrying: %w", rerr)
				}

				return retry.Unrecoverable(fmt.Errorf("%w: %w", ErrRejected, rerr))
			}

			// Not an RPC error, should only happen when we fail to hit the rpc service
			return fmt.Errorf("unexpected error (could not hit rpc service): %w", rerr)
		}

		return nil
	}, cfg.RetryOpts(ctx)...)
	if err != nil {
		return sollib.Signature{}, fmt.Errorf("error sending transaction: %w", err)
	}

	return txsig, nil
}
