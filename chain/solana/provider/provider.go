// Package provider constructs solana.Chain values, either for a remote RPC node or for a local
// validator started in Docker for tests.
package provider

import (
	"context"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana"
)

// ChainProvider initializes a Solana chain connection.
type ChainProvider interface {
	Initialize(ctx context.Context) (solana.Chain, error)
	Name() string
	ChainSelector() uint64
	BlockChain() *solana.Chain
}

var (
	_ ChainProvider = (*RPCChainProvider)(nil)
	_ ChainProvider = (*CTFChainProvider)(nil)
)
