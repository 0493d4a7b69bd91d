package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/funding"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/transfer"
	"github.com/smartcontractkit/solana-fund-transfer/engine/orchestrator"
)

var (
	runLong = longDesc(`
Load or create the sender keypair, top it up from the faucet when its balance is below
funding.min_balance, then transfer the amount to the recipient and wait for confirmation.

The receipt is printed and, with --receipt-out, written as YAML. A receipt is also written when
the transfer was submitted but did not confirm.
`)

	runExample = examples(`
# Send 0.1 SOL on devnet
soltransfer run --to 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM --amount 0.1

# Use a local validator and keep the receipt
soltransfer run --rpc-url http://127.0.0.1:8899 -t <address> -a 1 --receipt-out receipt.yaml
`)
)

// newRunCmd creates the "run" subcommand executing the full pipeline.
func newRunCmd(a *app) *cobra.Command {
	var (
		to         string
		amount     string
		receiptOut string
	)

	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Fund the sender and transfer SOL",
		Long:    runLong,
		Example: runExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to == "" {
				to = a.cfg.Transfer.Recipient
			}
			if amount == "" {
				amount = a.cfg.Transfer.Amount
			}

			return runRun(cmd, a, to, amount, receiptOut)
		},
	}

	cmd.Flags().StringVarP(&to, "to", "t", "", "Recipient address (default transfer.recipient)")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount in SOL, e.g. 0.1 (default transfer.amount)")
	cmd.Flags().StringVarP(&receiptOut, "receipt-out", "o", "", "Write the receipt as YAML to this path")

	return cmd
}

// runRun executes the run command logic.
// This is separated from the RunE closure to improve testability.
func runRun(cmd *cobra.Command, a *app, to, amount, receiptOut string) error {
	if to == "" {
		return errMissing("to", "transfer.recipient")
	}
	if amount == "" {
		return errMissing("amount", "transfer.amount")
	}

	recipient, err := solana.ParsePublicKey(to)
	if err != nil {
		return fmt.Errorf("%w: %w", transfer.ErrInvalidRecipient, err)
	}
	lamports, err := solana.ParseSOL(amount)
	if err != nil {
		return err
	}
	amounts, err := a.cfg.Amounts()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	chain, err := a.deps.ChainLoader(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", a.cfg.RPC.HTTPURL, err)
	}

	rpcOpts := a.cfg.RPCOpts()
	ks, source := a.keyStore()

	deps := orchestrator.Deps{
		KeyStore: ks,
		Funder: funding.NewGate(a.lggr, chain.Client, funding.Config{
			AirdropLamports:    amounts.AirdropAmount,
			MaxAirdropLamports: amounts.MaxAirdrop,
			RPCOpts:            rpcOpts,
		}),
		Transfer: transfer.NewPipeline(a.lggr, chain, rpcOpts...),
	}
	if a.cfg.Network.VerifyGenesis {
		deps.Network = chain
	}

	o, err := orchestrator.New(a.lggr, deps, orchestrator.Config{MinBalanceLamports: amounts.MinBalance})
	if err != nil {
		return err
	}

	out := o.Run(ctx, source, recipient, lamports)

	if r := out.Receipt; r != nil {
		cmd.Printf("Status:    %s\n", r.Status)
		cmd.Printf("Signature: %s\n", r.Signature)
		cmd.Printf("Amount:    %s SOL\n", solana.FormatSOL(r.Lamports))
		cmd.Printf("Explorer:  %s\n", r.ExplorerURL)

		if receiptOut != "" {
			if werr := a.deps.ReceiptWriter(receiptOut, r); werr != nil {
				a.lggr.Errorw("Failed to write receipt", "path", receiptOut, "error", werr)
			}
		}
	}

	if out.Err != nil {
		return fmt.Errorf("run %s failed (%s): %w", out.RunID, orchestrator.ErrorKind(out.Err), out.Err)
	}

	return nil
}
