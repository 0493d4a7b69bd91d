package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: The HTTP RPC URL to connect to the Solana node
	HTTPURL string
	// Optional: Compare the node's genesis hash with the chain selector during Initialize.
	VerifyGenesis bool
}

// validate checks if the RPCChainProviderConfig is valid.
func (c RPCChainProviderConfig) validate() error {
	if c.HTTPURL == "" {
		return errors.New("http url is required")
	}

	u, err := url.Parse(c.HTTPURL)
	if err != nil {
		return fmt.Errorf("invalid http url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("http url must use http or https, got %q", u.Scheme)
	}

	return nil
}

// RPCChainProvider is a chain provider that provides a chain that connects to a Solana node via
// RPC.
type RPCChainProvider struct {
	// Solana chain selector, used to identify the chain.
	selector uint64

	// RPCChainProviderConfig holds the configuration for the RPCChainProvider.
	config RPCChainProviderConfig

	// newClient builds the RPC client. Replaced in tests.
	newClient func(httpURL string) rpcclient.Client

	// chain is the Solana chain instance that this provider manages. The Initialize method
	// sets up the chain.
	chain *solana.Chain
}

func NewRPCChainProvider(selector uint64, config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{
		selector:  selector,
		config:    config,
		newClient: rpcclient.New,
	}
}

// Initialize validates the configuration and the selector, sets up the Solana client with the
// provided HTTP RPC URL and, when configured, checks the node serves the selector's cluster.
func (p *RPCChainProvider) Initialize(ctx context.Context) (solana.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	if err := p.config.validate(); err != nil {
		return solana.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	if _, err := solana.ChainInfo(p.selector); err != nil {
		return solana.Chain{}, fmt.Errorf("invalid chain selector %d: %w", p.selector, err)
	}

	c := solana.Chain{
		Selector: p.selector,
		Client:   p.newClient(p.config.HTTPURL),
		URL:      p.config.HTTPURL,
	}

	if p.config.VerifyGenesis {
		if err := c.VerifyGenesis(ctx); err != nil {
			return solana.Chain{}, err
		}
	}

	p.chain = &c

	return c, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "Solana RPC Chain Provider"
}

// ChainSelector returns the chain selector of the Solana chain managed by this provider.
func (p *RPCChainProvider) ChainSelector() uint64 {
	return p.selector
}

// BlockChain returns the Solana chain instance managed by this provider, or nil before
// Initialize.
func (p *RPCChainProvider) BlockChain() *solana.Chain {
	return p.chain
}
