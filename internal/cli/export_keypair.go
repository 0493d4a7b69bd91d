package cli

import (
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/keystore"
)

var exportKeypairExample = examples(`
soltransfer export-keypair -o ~/.config/solana/soltransfer.json
solana balance --keypair ~/.config/solana/soltransfer.json --url devnet
`)

// newExportKeypairCmd creates the "export-keypair" subcommand writing the sender keypair in the
// solana-keygen format.
func newExportKeypairCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:     "export-keypair",
		Short:   "Write the sender keypair as a Solana CLI keypair file",
		Example: exportKeypairExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ks, source := a.keyStore()

			id, err := ks.LoadOrCreateIdentity(source)
			if err != nil {
				return err
			}

			if err = keystore.WriteKeypairFile(out, id); err != nil {
				return err
			}

			cmd.Printf("Wrote keypair for %s to %s\n", id.PublicKey(), out)

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file path (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
