package cli

import (
	sollib "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

// senderKey loads, or creates on first use, the sender identity and returns its public key.
func (a *app) senderKey() (sollib.PublicKey, error) {
	ks, source := a.keyStore()

	id, err := ks.LoadOrCreateIdentity(source)
	if err != nil {
		return sollib.PublicKey{}, err
	}

	return id.PublicKey(), nil
}

// newAddressCmd creates the "address" subcommand. It does not contact the network.
func newAddressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the sender address, generating a keypair if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, err := a.senderKey()
			if err != nil {
				return err
			}

			cmd.Println(pub.String())

			return nil
		},
	}
}
