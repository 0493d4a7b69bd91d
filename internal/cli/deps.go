package cli

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/keystore"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/transfer"
	"github.com/smartcontractkit/solana-fund-transfer/engine/config"
	"github.com/smartcontractkit/solana-fund-transfer/pkg/logger"
)

// ConfigLoaderFunc loads the configuration from an optional file path.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// ChainLoaderFunc connects to the chain described by the configuration.
type ChainLoaderFunc func(ctx context.Context, cfg *config.Config) (solana.Chain, error)

// SourceOpenerFunc opens the ConfigSource holding the persisted keypair.
type SourceOpenerFunc func(path string) keystore.ConfigSource

// LoggerFactoryFunc builds the runtime logger.
type LoggerFactoryFunc func(cfg config.LogConfig) (logger.Logger, error)

// ReceiptWriterFunc persists a transfer receipt.
type ReceiptWriterFunc func(path string, receipt *transfer.Receipt) error

// defaultChainLoader connects to the configured RPC node. The genesis check is left to the
// commands so that it runs as part of the pipeline.
func defaultChainLoader(ctx context.Context, cfg *config.Config) (solana.Chain, error) {
	return provider.NewRPCChainProvider(cfg.Network.ChainSelector, provider.RPCChainProviderConfig{
		HTTPURL: cfg.RPC.HTTPURL,
	}).Initialize(ctx)
}

func defaultSourceOpener(path string) keystore.ConfigSource {
	return keystore.NewDotEnvSource(path)
}

func defaultLoggerFactory(cfg config.LogConfig) (logger.Logger, error) {
	lcfg, err := cfg.Config()
	if err != nil {
		return nil, err
	}

	return lcfg.New()
}

// defaultReceiptWriter writes the receipt as YAML.
func defaultReceiptWriter(path string, receipt *transfer.Receipt) error {
	b, err := yaml.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	if err = os.WriteFile(path, b, 0o644); err != nil { //nolint:gosec // receipts are public data
		return fmt.Errorf("failed to write receipt to %s: %w", path, err)
	}

	return nil
}

// Deps holds the injectable dependencies for the CLI.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// ChainLoader connects to the Solana node.
	// Default: provider.RPCChainProvider
	ChainLoader ChainLoaderFunc

	// SourceOpener opens the keypair store.
	// Default: keystore.NewDotEnvSource
	SourceOpener SourceOpenerFunc

	// LoggerFactory builds the logger from the log section of the configuration.
	// Default: logger.Config.New
	LoggerFactory LoggerFactoryFunc

	// ReceiptWriter persists receipts for --receipt-out.
	// Default: YAML file
	ReceiptWriter ReceiptWriterFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.ChainLoader == nil {
		d.ChainLoader = defaultChainLoader
	}
	if d.SourceOpener == nil {
		d.SourceOpener = defaultSourceOpener
	}
	if d.LoggerFactory == nil {
		d.LoggerFactory = defaultLoggerFactory
	}
	if d.ReceiptWriter == nil {
		d.ReceiptWriter = defaultReceiptWriter
	}
}
