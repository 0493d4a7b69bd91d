package rpcclient

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	sollib "github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
)

// Client is the subset of the Solana JSON-RPC API the transfer pipeline depends on. It is
// satisfied by *rpc.Client from solana-go, and by in-memory fakes in tests.
type Client interface {
	GetBalance(
		ctx context.Context, account sollib.PublicKey, commitment solrpc.CommitmentType,
	) (*solrpc.GetBalanceResult, error)
	GetLatestBlockhash(
		ctx context.Context, commitment solrpc.CommitmentType,
	) (*solrpc.GetLatestBlockhashResult, error)
	GetBlockHeight(ctx context.Context, commitment solrpc.CommitmentType) (uint64, error)
	RequestAirdrop(
		ctx context.Context, account sollib.PublicKey, lamports uint64, commitment solrpc.CommitmentType,
	) (sollib.Signature, error)
	SendTransactionWithOpts(
		ctx context.Context, tx *sollib.Transaction, opts solrpc.TransactionOpts,
	) (sollib.Signature, error)
	GetSignatureStatuses(
		ctx context.Context, searchTransactionHistory bool, sigs ...sollib.Signature,
	) (*solrpc.GetSignatureStatusesResult, error)
	GetGenesisHash(ctx context.Context) (sollib.Hash, error)
}

var _ Client = (*solrpc.Client)(nil)

// New creates a Client connected to the Solana node at httpURL.
func New(httpURL string) Client {
	return solrpc.New(httpURL)
}

// GetBalance returns the balance of account in lamports, retrying transport failures based on
// the provided options.
func GetBalance(ctx context.Context, c Client, account sollib.PublicKey, opts ...Opt) (uint64, error) {
	cfg := newConfig(opts...)

	var lamports uint64
	err := retry.Do(func() error {
		res, err := c.GetBalance(ctx, account, cfg.Commitment)
		if err != nil {
			return err
		}
		lamports = res.Value

		return nil
	}, cfg.RetryOpts(ctx)...)
	if err != nil {
		return 0, fmt.Errorf("error getting balance of %s: %w", account, err)
	}

	return lamports, nil
}
