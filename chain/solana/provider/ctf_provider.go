package provider

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	sollib "github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	chain_selectors "github.com/smartcontractkit/chain-selectors"
	"github.com/smartcontractkit/chainlink-testing-framework/framework"
	"github.com/smartcontractkit/chainlink-testing-framework/framework/components/blockchain"
	"github.com/smartcontractkit/freeport"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
)

// CTFChainProviderConfig holds the configuration to initialize the CTFChainProvider.
type CTFChainProviderConfig struct {
	// Required: A sync.Once instance to ensure that the CTF framework only sets up the new
	// DefaultNetwork once
	Once *sync.Once
	// Optional: An account the validator funds at genesis. A random key is used when unset.
	FundedAccount sollib.PublicKey
	// Optional: WaitDelayAfterContainerStart is the duration to wait after starting the CTF
	// container. This is useful to ensure the container is fully initialized before attempting to
	// interact with it.
	//
	// Default: 0s (no delay)
	WaitDelayAfterContainerStart time.Duration
}

// validate checks if the CTFChainProviderConfig is valid.
func (c CTFChainProviderConfig) validate() error {
	if c.Once == nil {
		return errors.New("sync.Once instance is required")
	}

	return nil
}

// CTFChainProvider manages a local Solana test validator running inside a Chainlink Testing
// Framework (CTF) Docker container.
//
// This provider requires Docker to be installed and operational. Spinning up a new container
// can be slow, so it is recommended to initialize the provider only once per test suite or parent
// test to optimize performance.
type CTFChainProvider struct {
	t        *testing.T
	selector uint64
	config   CTFChainProviderConfig

	chain *solana.Chain
}

// NewCTFChainProvider creates a new CTFChainProvider with the given selector and configuration.
func NewCTFChainProvider(
	t *testing.T, selector uint64, config CTFChainProviderConfig,
) *CTFChainProvider {
	t.Helper()

	p := &CTFChainProvider{
		t:        t,
		selector: selector,
		config:   config,
	}

	return p
}

// Initialize validates the configuration, starts a CTF container and constructs the chain
// instance pointing at it.
func (p *CTFChainProvider) Initialize(_ context.Context) (solana.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	if err := p.config.validate(); err != nil {
		return solana.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	// Get the Solana Chain ID
	chainID, err := chain_selectors.GetChainIDFromSelector(p.selector)
	if err != nil {
		return solana.Chain{}, fmt.Errorf("failed to get chain ID from selector %d: %w", p.selector, err)
	}

	funded := p.config.FundedAccount
	if funded.IsZero() {
		funded = sollib.NewWallet().PublicKey()
	}

	httpURL := p.startContainer(chainID, funded)

	p.chain = &solana.Chain{
		Selector: p.selector,
		Client:   rpcclient.New(httpURL),
		URL:      httpURL,
	}

	return *p.chain, nil
}

// Name returns the name of the CTFChainProvider.
func (*CTFChainProvider) Name() string {
	return "Solana CTF Chain Provider"
}

// ChainSelector returns the chain selector of the Solana chain managed by this provider.
func (p *CTFChainProvider) ChainSelector() uint64 {
	return p.selector
}

// BlockChain returns the Solana chain instance managed by this provider. You must call Initialize
// before using this method to ensure the chain is properly set up.
func (p *CTFChainProvider) BlockChain() *solana.Chain {
	return p.chain
}

// startContainer starts a CTF container for the Solana chain and returns its HTTP RPC URL.
func (p *CTFChainProvider) startContainer(chainID string, funded sollib.PublicKey) string {
	var (
		attempts = uint(10)
		httpURL  string
	)

	// initialize the docker network used by CTF
	err := framework.DefaultNetwork(p.config.Once)
	require.NoError(p.t, err)

	err = retry.Do(func() error {
		// solana requires 2 ports, one for http and one for ws, but only allows one to be specified
		// the other is +1 of the first one
		// must reserve 2 to avoid port conflicts in the freeport library with other tests
		ports := freeport.GetN(p.t, 2)

		image := ""
		if runtime.GOOS == "linux" {
			image = "solanalabs/solana:v1.18.26" // workaround on linux to load a separate image
		}

		input := &blockchain.Input{
			Image:          image,
			Type:           "solana",
			ChainID:        chainID,
			PublicKey:      funded.String(),
			Port:           strconv.Itoa(ports[0]),
			ContractsDir:   p.t.TempDir(),
			SolanaPrograms: map[string]string{},
		}

		output, rerr := blockchain.NewBlockchainNetwork(input)
		if rerr != nil {
			// Return the ports to freeport to avoid leaking them during retries
			freeport.Return(ports)

			return rerr
		}

		testcontainers.CleanupContainer(p.t, output.Container)

		httpURL = output.Nodes[0].ExternalHTTPUrl

		return nil
	},
		retry.Context(p.t.Context()),
		retry.Attempts(attempts),
		retry.Delay(1*time.Second),
		retry.DelayType(retry.FixedDelay),
	)
	require.NoError(p.t, err, "Failed to start CTF Solana container after %d attempts", attempts)

	checkSolanaNodeHealth(p.t, httpURL)

	// Wait for the configured delay after starting the container to ensure the chain is fully booted.
	if p.config.WaitDelayAfterContainerStart > 0 {
		time.Sleep(p.config.WaitDelayAfterContainerStart)
	}

	return httpURL
}

// checkSolanaNodeHealth checks the health of the Solana node by querying its health endpoint.
// We expect that node will be available within 30 seconds, with a 1 second delay between attempts,
// however this is an assumption.
func checkSolanaNodeHealth(t *testing.T, httpURL string) {
	t.Helper()

	solclient := solrpc.New(httpURL)
	err := retry.Do(func() error {
		out, rerr := solclient.GetHealth(t.Context())
		if rerr != nil {
			return rerr
		}
		if out != solrpc.HealthOk {
			return fmt.Errorf("API server not healthy yet: %s", out)
		}

		return nil
	},
		retry.Context(t.Context()),
		retry.Attempts(30),
		retry.Delay(1*time.Second),
		retry.DelayType(retry.FixedDelay),
	)
	require.NoError(t, err, "API server is not healthy")
}
