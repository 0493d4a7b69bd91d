package cli

import (
	"fmt"

	sollib "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
)

// newBalanceCmd creates the "balance" subcommand.
func newBalanceCmd(a *app) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the SOL balance of the sender or of --address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				account sollib.PublicKey
				err     error
			)
			if address != "" {
				account, err = solana.ParsePublicKey(address)
			} else {
				account, err = a.senderKey()
			}
			if err != nil {
				return err
			}

			chain, err := a.deps.ChainLoader(cmd.Context(), a.cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", a.cfg.RPC.HTTPURL, err)
			}
			if a.cfg.Network.VerifyGenesis {
				if err = chain.VerifyGenesis(cmd.Context()); err != nil {
					return err
				}
			}

			lamports, err := rpcclient.GetBalance(cmd.Context(), chain.Client, account, a.cfg.RPCOpts()...)
			if err != nil {
				return err
			}

			cmd.Printf("%s %s SOL\n", account, solana.FormatSOL(lamports))

			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Account to query instead of the sender")

	return cmd
}
