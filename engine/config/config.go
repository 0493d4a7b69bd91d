// Package config loads the soltransfer configuration from an optional file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	chain_selectors "github.com/smartcontractkit/chain-selectors"
	"github.com/spf13/viper"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
	"github.com/smartcontractkit/solana-fund-transfer/pkg/logger"
)

// RPCConfig is the configuration for the Solana JSON-RPC endpoint.
type RPCConfig struct {
	HTTPURL string `mapstructure:"http_url" yaml:"http_url"` // The HTTP JSON-RPC URL of the Solana node
}

// NetworkConfig identifies the cluster a run operates on.
type NetworkConfig struct {
	ChainSelector uint64 `mapstructure:"chain_selector" yaml:"chain_selector"` // Solana chain selector
	VerifyGenesis bool   `mapstructure:"verify_genesis" yaml:"verify_genesis"` // Compare the node genesis hash with the chain selector before running
}

// KeystoreConfig locates the persisted keypair.
//
// WARNING: The file referenced by EnvFile holds secret key material.
type KeystoreConfig struct {
	EnvFile string `mapstructure:"env_file" yaml:"env_file"` // Path of the dotenv file holding PRIVATE_KEY
}

// FundingConfig holds the airdrop parameters. Amounts are decimal SOL strings.
type FundingConfig struct {
	MinBalance    string `mapstructure:"min_balance" yaml:"min_balance"`       // Balance below which an airdrop is requested
	AirdropAmount string `mapstructure:"airdrop_amount" yaml:"airdrop_amount"` // Amount requested per airdrop
	MaxAirdrop    string `mapstructure:"max_airdrop" yaml:"max_airdrop"`       // Faucet cap per request
}

// TransferConfig holds the default transfer parameters. Both can be overridden by CLI flags.
type TransferConfig struct {
	Recipient string `mapstructure:"recipient" yaml:"recipient"` // Base58 recipient address
	Amount    string `mapstructure:"amount" yaml:"amount"`       // Decimal SOL amount
}

// ConfirmConfig tunes confirmation polling.
type ConfirmConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxPollAttempts uint          `mapstructure:"max_poll_attempts" yaml:"max_poll_attempts"`
}

// SendConfig tunes retries of idempotent RPC calls and transaction submission.
type SendConfig struct {
	RetryAttempts uint          `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// LogConfig configures the runtime logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn or error
	Format string `mapstructure:"format" yaml:"format"` // json or console
	File   string `mapstructure:"file" yaml:"file"`     // Optional rotated log file
}

// Config wraps the entire configuration of soltransfer.
type Config struct {
	RPC      RPCConfig      `mapstructure:"rpc" yaml:"rpc"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Keystore KeystoreConfig `mapstructure:"keystore" yaml:"keystore"`
	Funding  FundingConfig  `mapstructure:"funding" yaml:"funding"`
	Transfer TransferConfig `mapstructure:"transfer" yaml:"transfer"`
	Confirm  ConfirmConfig  `mapstructure:"confirm" yaml:"confirm"`
	Send     SendConfig     `mapstructure:"send" yaml:"send"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// defaults are applied before the file and the environment.
var defaults = map[string]any{
	"rpc.http_url":              "https://api.devnet.solana.com",
	"network.chain_selector":    chain_selectors.SOLANA_DEVNET.Selector,
	"network.verify_genesis":    true,
	"keystore.env_file":         ".env",
	"funding.min_balance":       "1",
	"funding.airdrop_amount":    "1",
	"funding.max_airdrop":       "2",
	"confirm.poll_interval":     500 * time.Millisecond,
	"confirm.max_poll_attempts": 300,
	"send.retry_attempts":       3,
	"send.retry_delay":          250 * time.Millisecond,
	"log.level":                 "info",
	"log.format":                string(logger.FormatConsole),
}

var (
	// envBindings defines how environment variables map to configuration keys used by Viper.
	// Each entry maps a config key (as used in the struct, e.g. "rpc.http_url") to a list of
	// environment variable names that can provide its value.
	//
	// The first element in the list is the preferred environment variable name, and the second
	// (if present) is a shorter name commonly used by Solana tooling.
	envBindings = map[string][]string{
		"rpc.http_url":              {"SOLTRANSFER_RPC_HTTP_URL", "SOLANA_RPC_URL"},
		"network.chain_selector":    {"SOLTRANSFER_NETWORK_CHAIN_SELECTOR"},
		"network.verify_genesis":    {"SOLTRANSFER_NETWORK_VERIFY_GENESIS"},
		"keystore.env_file":         {"SOLTRANSFER_KEYSTORE_ENV_FILE"},
		"funding.min_balance":       {"SOLTRANSFER_FUNDING_MIN_BALANCE"},
		"funding.airdrop_amount":    {"SOLTRANSFER_FUNDING_AIRDROP_AMOUNT"},
		"funding.max_airdrop":       {"SOLTRANSFER_FUNDING_MAX_AIRDROP"},
		"transfer.recipient":        {"SOLTRANSFER_TRANSFER_RECIPIENT", "RECIPIENT"},
		"transfer.amount":           {"SOLTRANSFER_TRANSFER_AMOUNT"},
		"confirm.poll_interval":     {"SOLTRANSFER_CONFIRM_POLL_INTERVAL"},
		"confirm.max_poll_attempts": {"SOLTRANSFER_CONFIRM_MAX_POLL_ATTEMPTS"},
		"send.retry_attempts":       {"SOLTRANSFER_SEND_RETRY_ATTEMPTS"},
		"send.retry_delay":          {"SOLTRANSFER_SEND_RETRY_DELAY"},
		"log.level":                 {"SOLTRANSFER_LOG_LEVEL"},
		"log.format":                {"SOLTRANSFER_LOG_FORMAT"},
		"log.file":                  {"SOLTRANSFER_LOG_FILE"},
	}
)

// Load loads the config from the file path, falling back to defaults and env vars if the path is
// empty or the file does not exist. Env vars that are set override the values loaded from the
// file.
func Load(filePath string) (*Config, error) {
	v := viper.New()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	// Bind environment variables
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" {
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			v.SetConfigFile(filePath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		// Prepend the config key to the start of the arguments
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks every field that does not depend on the command being run. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.RPC.HTTPURL == "" {
		errs = append(errs, errors.New("rpc.http_url is required"))
	}
	if _, err := solana.ChainInfo(c.Network.ChainSelector); err != nil {
		errs = append(errs, fmt.Errorf("network.chain_selector: %w", err))
	}
	if c.Keystore.EnvFile == "" {
		errs = append(errs, errors.New("keystore.env_file is required"))
	}
	if _, err := c.Amounts(); err != nil {
		errs = append(errs, err)
	}
	if c.Transfer.Recipient != "" {
		if _, err := solana.ParsePublicKey(c.Transfer.Recipient); err != nil {
			errs = append(errs, fmt.Errorf("transfer.recipient: %w", err))
		}
	}
	if c.Confirm.PollInterval <= 0 {
		errs = append(errs, errors.New("confirm.poll_interval must be positive"))
	}
	if _, err := c.Log.Config(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Amounts holds the configured SOL amounts converted to lamports.
type Amounts struct {
	MinBalance    uint64
	AirdropAmount uint64
	MaxAirdrop    uint64
	// Transfer is zero when transfer.amount is unset.
	Transfer uint64
}

// Amounts parses the decimal SOL amounts of the config.
func (c *Config) Amounts() (Amounts, error) {
	var (
		a   Amounts
		err error
	)

	fields := []struct {
		key      string
		value    string
		target   *uint64
		optional bool
	}{
		{"funding.min_balance", c.Funding.MinBalance, &a.MinBalance, false},
		{"funding.airdrop_amount", c.Funding.AirdropAmount, &a.AirdropAmount, false},
		{"funding.max_airdrop", c.Funding.MaxAirdrop, &a.MaxAirdrop, false},
		{"transfer.amount", c.Transfer.Amount, &a.Transfer, true},
	}
	for _, f := range fields {
		if f.value == "" && f.optional {
			continue
		}
		if *f.target, err = solana.ParseSOL(f.value); err != nil {
			return Amounts{}, fmt.Errorf("%s: %w", f.key, err)
		}
	}

	if a.AirdropAmount == 0 {
		return Amounts{}, fmt.Errorf("funding.airdrop_amount: %w: must be positive", solana.ErrInvalidAmount)
	}

	return a, nil
}

// RPCOpts returns the retry and polling options for rpcclient helpers.
func (c *Config) RPCOpts() []rpcclient.Opt {
	return []rpcclient.Opt{
		rpcclient.WithRetry(c.Send.RetryAttempts, c.Send.RetryDelay),
		rpcclient.WithPolling(c.Confirm.PollInterval, c.Confirm.MaxPollAttempts),
	}
}

// Config converts the log section into a logger configuration.
func (c LogConfig) Config() (logger.Config, error) {
	lvl, err := logger.ParseLevel(c.Level)
	if err != nil {
		return logger.Config{}, fmt.Errorf("log.level: %w", err)
	}

	format := logger.Format(c.Format)
	switch format {
	case logger.FormatJSON, logger.FormatConsole, "":
	default:
		return logger.Config{}, fmt.Errorf("log.format: unsupported format %q", c.Format)
	}

	return logger.Config{Level: lvl, Format: format, File: c.File}, nil
}
