package provider

import (
	"testing"

	sollib "github.com/gagliardetto/solana-go"
	chain_selectors "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
	"github.com/smartcontractkit/solana-fund-transfer/internal/testing/solfake"
)

func Test_RPCChainProviderConfig_validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		giveConfigFunc func(*RPCChainProviderConfig)
		wantErr        string
	}{
		{
			name: "valid config",
		},
		{
			name:           "missing http url",
			giveConfigFunc: func(c *RPCChainProviderConfig) { c.HTTPURL = "" },
			wantErr:        "http url is required",
		},
		{
			name:           "websocket url",
			giveConfigFunc: func(c *RPCChainProviderConfig) { c.HTTPURL = "ws://localhost:8900" },
			wantErr:        `http url must use http or https, got "ws"`,
		},
		{
			name:           "unparsable url",
			giveConfigFunc: func(c *RPCChainProviderConfig) { c.HTTPURL = "http://[::1" },
			wantErr:        "invalid http url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config := RPCChainProviderConfig{
				HTTPURL: "https://api.devnet.solana.com",
			}

			if tt.giveConfigFunc != nil {
				tt.giveConfigFunc(&config)
			}

			err := config.validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_RPCChainProvider_Initialize(t *testing.T) {
	t.Parallel()

	devnetGenesis := sollib.MustHashFromBase58(chain_selectors.SOLANA_DEVNET.ChainID)

	tests := []struct {
		name          string
		giveSelector  uint64
		giveConfig    RPCChainProviderConfig
		giveGenesis   sollib.Hash
		wantGenesisRq int
		wantErr       string
		wantErrIs     error
	}{
		{
			name:         "valid initialization",
			giveSelector: chain_selectors.SOLANA_DEVNET.Selector,
			giveConfig:   RPCChainProviderConfig{HTTPURL: "http://localhost:8899"},
		},
		{
			name:          "genesis verified",
			giveSelector:  chain_selectors.SOLANA_DEVNET.Selector,
			giveConfig:    RPCChainProviderConfig{HTTPURL: "http://localhost:8899", VerifyGenesis: true},
			giveGenesis:   devnetGenesis,
			wantGenesisRq: 1,
		},
		{
			name:          "genesis mismatch",
			giveSelector:  chain_selectors.SOLANA_DEVNET.Selector,
			giveConfig:    RPCChainProviderConfig{HTTPURL: "http://localhost:8899", VerifyGenesis: true},
			wantGenesisRq: 1,
			wantErrIs:     solana.ErrNetworkMismatch,
		},
		{
			name:         "evm selector",
			giveSelector: chain_selectors.ETHEREUM_MAINNET.Selector,
			giveConfig:   RPCChainProviderConfig{HTTPURL: "http://localhost:8899"},
			wantErr:      "not solana",
		},
		{
			name:         "unknown selector",
			giveSelector: 999,
			giveConfig:   RPCChainProviderConfig{HTTPURL: "http://localhost:8899"},
			wantErr:      "invalid chain selector 999",
		},
		{
			name:         "invalid config",
			giveSelector: chain_selectors.SOLANA_DEVNET.Selector,
			wantErr:      "failed to validate provider config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ledger := solfake.New()
			ledger.Genesis = tt.giveGenesis

			p := NewRPCChainProvider(tt.giveSelector, tt.giveConfig)
			p.newClient = func(string) rpcclient.Client { return ledger }

			got, err := p.Initialize(t.Context())
			assert.Equal(t, tt.wantGenesisRq, ledger.Calls(solfake.MethodGetGenesisHash))

			switch {
			case tt.wantErrIs != nil:
				require.ErrorIs(t, err, tt.wantErrIs)
				assert.Nil(t, p.BlockChain())
			case tt.wantErr != "":
				require.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, p.BlockChain())
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.giveSelector, got.Selector)
				assert.Equal(t, tt.giveConfig.HTTPURL, got.URL)
				assert.Same(t, ledger, got.Client)
				require.NotNil(t, p.BlockChain())
				assert.Equal(t, got, *p.BlockChain())
			}
		})
	}
}

func Test_RPCChainProvider_InitializeOnce(t *testing.T) {
	t.Parallel()

	ledger := solfake.New()
	p := NewRPCChainProvider(chain_selectors.SOLANA_DEVNET.Selector, RPCChainProviderConfig{
		HTTPURL:       "http://localhost:8899",
		VerifyGenesis: true,
	})
	p.newClient = func(string) rpcclient.Client { return ledger }
	ledger.Genesis = sollib.MustHashFromBase58(chain_selectors.SOLANA_DEVNET.ChainID)

	_, err := p.Initialize(t.Context())
	require.NoError(t, err)
	_, err = p.Initialize(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.Calls(solfake.MethodGetGenesisHash))
}

func Test_RPCChainProvider_Name(t *testing.T) {
	t.Parallel()

	p := NewRPCChainProvider(chain_selectors.SOLANA_DEVNET.Selector, RPCChainProviderConfig{})
	assert.Equal(t, "Solana RPC Chain Provider", p.Name())
	assert.Equal(t, chain_selectors.SOLANA_DEVNET.Selector, p.ChainSelector())
}
