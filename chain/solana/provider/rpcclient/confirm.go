package rpcclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
	sollib "github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrBlockhashExpired is returned when the block height passes the last valid block height of
	// the transaction's blockhash before the transaction is confirmed. The transaction can no
	// longer land.
	ErrBlockhashExpired = errors.New("blockhash validity window expired before confirmation")
	// ErrNotConfirmed is returned when polling gave up before either confirmation or expiry.
	ErrNotConfirmed = errors.New("transaction not confirmed")
	// ErrTransactionFailed is returned when the transaction landed but its execution failed.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	errPending = errors.New("transaction pending")
)

// WaitForConfirmation polls the status of a signature until it reaches the configured
// commitment, fails, or the validity window expires. It returns the status that satisfied the
// commitment.
func WaitForConfirmation(
	ctx context.Context,
	c Client,
	txsig sollib.Signature,
	window ValidityWindow,
	opts ...Opt,
) (*solrpc.SignatureStatusesResult, error) {
	cfg := newConfig(opts...)

	var confirmed *solrpc.SignatureStatusesResult
	err := retry.Do(func() error {
		status, err := signatureStatus(ctx, c, txsig, cfg.Commitment)
		if err != nil || status != nil {
			confirmed = status
			return err
		}

		height, err := c.GetBlockHeight(ctx, cfg.Commitment)
		if err != nil {
			// Retry if we hit an error fetching the block height. Mainnet can be flakey.
			return fmt.Errorf("error getting block height: %w", err)
		}
		if height <= window.LastValidBlockHeight {
			return errPending
		}

		// The transaction may have landed between the status read and the height read.
		status, err = signatureStatus(ctx, c, txsig, cfg.Commitment)
		if err != nil || status != nil {
			confirmed = status
			return err
		}

		return retry.Unrecoverable(fmt.Errorf("%w: block height %d passed %d",
			ErrBlockhashExpired, height, window.LastValidBlockHeight))
	}, cfg.PollOpts(ctx)...)

	switch {
	case errors.Is(err, errPending):
		return nil, fmt.Errorf("%w: %s still pending after %d polls", ErrNotConfirmed, txsig, cfg.MaxPollAttempts)
	case err != nil:
		return nil, err
	}

	return confirmed, nil
}

// signatureStatus returns the status of txsig when it satisfies commitment, nil while it does
// not, and an unrecoverable ErrTransactionFailed when it landed with an execution error.
func signatureStatus(
	ctx context.Context, c Client, txsig sollib.Signature, commitment solrpc.CommitmentType,
) (*solrpc.SignatureStatusesResult, error) {
	res, err := c.GetSignatureStatuses(ctx, true, txsig)
	if err != nil {
		return nil, fmt.Errorf("error getting signature status: %w", err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return nil, nil
	}

	status := res.Value[0]
	if status.Err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %s: %v", ErrTransactionFailed, txsig, status.Err))
	}
	if satisfies(status.ConfirmationStatus, commitment) {
		return status, nil
	}

	return nil, nil
}

// satisfies reports whether a confirmation status is at least the requested commitment.
func satisfies(got solrpc.ConfirmationStatusType, want solrpc.CommitmentType) bool {
	switch got {
	case solrpc.ConfirmationStatusFinalized:
		return true
	case solrpc.ConfirmationStatusConfirmed:
		return want != solrpc.CommitmentFinalized
	case solrpc.ConfirmationStatusProcessed:
		return want == solrpc.CommitmentProcessed
	default:
		return false
	}
}
