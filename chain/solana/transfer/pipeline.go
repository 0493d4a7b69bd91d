// Package transfer builds, signs, submits and confirms single-signer SOL transfers.
package transfer

import (
	"context"
	"errors"
	"fmt"

	sollib "github.com/gagliardetto/solana-go"
	solsystem "github.com/gagliardetto/solana-go/programs/system"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
	"github.com/smartcontractkit/solana-fund-transfer/pkg/logger"
)

var (
	// ErrTransferRejected is returned when the node refuses the transaction (e.g. insufficient
	// funds at preflight) or it fails during execution. It is not retried.
	ErrTransferRejected = errors.New("transfer rejected")
	// ErrTransferTimeout is returned when the transaction is not confirmed before its blockhash
	// expires.
	ErrTransferTimeout = errors.New("transfer not confirmed in time")
)

// Pipeline submits transfers on a single chain.
type Pipeline struct {
	lggr  logger.Logger
	chain solana.Chain
	opts  []rpcclient.Opt
}

// NewPipeline creates a Pipeline sending through chain.Client.
func NewPipeline(lggr logger.Logger, chain solana.Chain, opts ...rpcclient.Opt) *Pipeline {
	return &Pipeline{
		lggr:  lggr.Named("transfer"),
		chain: chain,
		opts:  opts,
	}
}

// Transfer builds a system transfer for req, signs it with the sender only, submits it and
// waits until it is confirmed or its blockhash expires.
//
// On ErrTransferTimeout and ErrTransferRejected after submission the returned receipt is
// non-nil, with status pending or failed respectively, so the signature can be reported.
func (p *Pipeline) Transfer(ctx context.Context, req Request) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sender := req.Sender.PublicKey()

	window, err := rpcclient.LatestValidityWindow(ctx, p.chain.Client, p.opts...)
	if err != nil {
		return nil, err
	}

	tx, err := p.buildTx(req, window.Blockhash)
	if err != nil {
		return nil, err
	}

	// No context checks between signing and submission: a signed transaction is sent whole or
	// not at all.
	p.lggr.Infow("Sending SOL",
		"from", sender.String(),
		"to", req.Recipient.String(),
		"sol", solana.FormatSOL(req.Lamports))
	sig, err := rpcclient.SendTransaction(ctx, p.chain.Client, tx, p.opts...)
	if err != nil {
		if errors.Is(err, rpcclient.ErrRejected) {
			return nil, fmt.Errorf("%w: %w", ErrTransferRejected, err)
		}

		return nil, err
	}

	receipt := &Receipt{
		Signature:   sig,
		Status:      StatusPending,
		Sender:      sender,
		Recipient:   req.Recipient,
		Lamports:    req.Lamports,
		ExplorerURL: p.chain.ExplorerTxURL(sig),
	}
	p.lggr.Debugw("Transaction submitted", "signature", sig.String(),
		"lastValidBlockHeight", window.LastValidBlockHeight)

	status, err := rpcclient.WaitForConfirmation(ctx, p.chain.Client, sig, window, p.opts...)
	if err != nil {
		switch {
		case errors.Is(err, rpcclient.ErrBlockhashExpired), errors.Is(err, rpcclient.ErrNotConfirmed):
			return receipt, fmt.Errorf("%w: %w", ErrTransferTimeout, err)
		case errors.Is(err, rpcclient.ErrTransactionFailed):
			receipt.Status = StatusFailed
			return receipt, fmt.Errorf("%w: %w", ErrTransferRejected, err)
		default:
			return receipt, fmt.Errorf("failed to confirm transfer %s: %w", sig, err)
		}
	}

	receipt.Status = StatusConfirmed
	receipt.Slot = status.Slot
	p.lggr.Infow("View transaction", "url", receipt.ExplorerURL)

	return receipt, nil
}

// buildTx constructs and signs the single instruction transfer transaction.
func (p *Pipeline) buildTx(req Request, blockhash sollib.Hash) (*sollib.Transaction, error) {
	sender := req.Sender.PublicKey()

	ix, err := solsystem.NewTransferInstruction(req.Lamports, sender, req.Recipient).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("error building transfer instruction: %w", err)
	}

	tx, err := sollib.NewTransaction(
		[]sollib.Instruction{ix},
		blockhash,
		sollib.TransactionPayer(sender),
	)
	if err != nil {
		return nil, fmt.Errorf("error constructing transaction: %w", err)
	}

	if _, err = tx.Sign(req.Sender.Signer()); err != nil {
		return nil, fmt.Errorf("error signing transaction: %w", err)
	}

	return tx, nil
}
