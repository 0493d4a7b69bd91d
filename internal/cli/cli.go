// Package cli implements the soltransfer command line.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/keystore"
	"github.com/smartcontractkit/solana-fund-transfer/engine/config"
	"github.com/smartcontractkit/solana-fund-transfer/pkg/logger"
)

// Config holds the configuration for the root command.
type Config struct {
	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// app is the state shared by every subcommand once the root pre-run has loaded it.
type app struct {
	deps *Deps
	cfg  *config.Config
	lggr logger.Logger
}

// keyStore returns a KeyStore and the source configured for it.
func (a *app) keyStore() (*keystore.KeyStore, keystore.ConfigSource) {
	return keystore.New(a.lggr), a.deps.SourceOpener(a.cfg.Keystore.EnvFile)
}

var rootLong = longDesc(`
Fund a Solana account from the devnet faucet and transfer SOL from it.

The sender keypair is kept in a dotenv file under PRIVATE_KEY and generated on first use.
Configuration is read from the file given with --config, overridden by SOLTRANSFER_* environment
variables and finally by flags.
`)

// NewRootCommand creates the soltransfer command with all subcommands.
func NewRootCommand(cfg Config) *cobra.Command {
	cfg.Deps.applyDefaults()
	a := &app{deps: &cfg.Deps}

	var (
		configPath string
		rpcURL     string
		envFile    string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:           "soltransfer",
		Short:         "Fund a Solana account and transfer SOL",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.deps.ConfigLoader(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			flags := cmd.Flags()
			if flags.Changed("rpc-url") {
				c.RPC.HTTPURL = rpcURL
			}
			if flags.Changed("env-file") {
				c.Keystore.EnvFile = envFile
			}
			if flags.Changed("log-level") {
				c.Log.Level = logLevel
			}
			if flags.Changed("log-format") {
				c.Log.Format = logFormat
			}

			if err = c.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			lggr, err := a.deps.LoggerFactory(c.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}

			a.cfg = c
			a.lggr = lggr

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.lggr != nil {
				_ = a.lggr.Sync()
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "soltransfer.yaml", "Config file path, ignored if it does not exist")
	pf.StringVar(&rpcURL, "rpc-url", "", "Solana HTTP JSON-RPC URL")
	pf.StringVar(&envFile, "env-file", "", "Dotenv file holding PRIVATE_KEY")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: console or json")

	cmd.AddCommand(
		newRunCmd(a),
		newBalanceCmd(a),
		newAddressCmd(a),
		newExportKeypairCmd(a),
	)

	return cmd
}

// errMissing reports a required value that was neither passed as a flag nor configured.
func errMissing(flag, key string) error {
	return errors.New("--" + flag + " or " + key + " is required")
}
