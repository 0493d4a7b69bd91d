package solana

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	sollib "github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	chain_selectors "github.com/smartcontractkit/chain-selectors"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
)

const (
	// SolDefaultCommitment is the commitment level used for balance reads, preflight and
	// confirmation.
	SolDefaultCommitment = solrpc.CommitmentConfirmed

	explorerBaseURL = "https://explorer.solana.com"
)

// ErrNetworkMismatch is returned when the RPC node serves a different cluster than the chain
// selector describes.
var ErrNetworkMismatch = errors.New("rpc node genesis hash does not match chain selector")

// Chain represents the Solana cluster a run operates on.
type Chain struct {
	Selector uint64

	// RPC client
	Client rpcclient.Client
	URL    string
}

// ChainSelector returns the chain selector of the chain
func (c Chain) ChainSelector() uint64 {
	return c.Selector
}

// String returns chain name and selector "<name> (<selector>)"
func (c Chain) String() string {
	info, err := ChainInfo(c.Selector)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("%s (%d)", info.ChainName, info.ChainSelector)
}

// Name returns the name of the chain
func (c Chain) Name() string {
	info, err := ChainInfo(c.Selector)
	if err != nil {
		return ""
	}
	if info.ChainName == "" {
		return strconv.FormatUint(c.Selector, 10)
	}

	return info.ChainName
}

// GenesisHash returns the genesis hash the chain selector maps to. For Solana the chain ID is the
// base58 encoded genesis hash.
func (c Chain) GenesisHash() (sollib.Hash, error) {
	id, err := chain_selectors.GetChainIDFromSelector(c.Selector)
	if err != nil {
		return sollib.Hash{}, fmt.Errorf("unknown chain selector %d: %w", c.Selector, err)
	}

	h, err := sollib.HashFromBase58(id)
	if err != nil {
		return sollib.Hash{}, fmt.Errorf("chain id %q is not a genesis hash: %w", id, err)
	}

	return h, nil
}

// VerifyGenesis checks that the RPC node serves the cluster identified by the chain selector.
func (c Chain) VerifyGenesis(ctx context.Context) error {
	want, err := c.GenesisHash()
	if err != nil {
		return err
	}

	got, err := c.Client.GetGenesisHash(ctx)
	if err != nil {
		return fmt.Errorf("failed to get genesis hash: %w", err)
	}

	if !got.Equals(want) {
		return fmt.Errorf("%w: selector %d expects %s, node returned %s",
			ErrNetworkMismatch, c.Selector, want, got)
	}

	return nil
}

// Cluster returns the explorer cluster name for the chain: "devnet", "testnet", "" for mainnet
// and "custom" for anything else, e.g. a local validator.
func (c Chain) Cluster() string {
	switch c.Name() {
	case chain_selectors.SOLANA_MAINNET.Name:
		return ""
	case chain_selectors.SOLANA_DEVNET.Name:
		return "devnet"
	case "solana-testnet":
		return "testnet"
	default:
		return "custom"
	}
}

// ExplorerTxURL returns the Solana explorer link for a transaction signature.
func (c Chain) ExplorerTxURL(sig sollib.Signature) string {
	link := fmt.Sprintf("%s/tx/%s", explorerBaseURL, sig)

	switch cluster := c.Cluster(); cluster {
	case "":
		return link
	case "custom":
		q := url.Values{}
		q.Set("cluster", cluster)
		q.Set("customUrl", c.URL)

		return link + "?" + q.Encode()
	default:
		return link + "?cluster=" + cluster
	}
}

// ChainInfo returns the chain info for the given selector.
// It returns an error if the selector is invalid or is not a Solana selector.
func ChainInfo(cs uint64) (chain_selectors.ChainDetails, error) {
	id, err := chain_selectors.GetChainIDFromSelector(cs)
	if err != nil {
		return chain_selectors.ChainDetails{}, err
	}
	family, err := chain_selectors.GetSelectorFamily(cs)
	if err != nil {
		return chain_selectors.ChainDetails{}, err
	}
	if family != chain_selectors.FamilySolana {
		return chain_selectors.ChainDetails{}, fmt.Errorf("selector %d belongs to family %s, not solana", cs, family)
	}

	return chain_selectors.GetChainDetailsByChainIDAndFamily(id, family)
}
