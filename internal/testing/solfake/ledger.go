// Package solfake provides an in-memory Solana ledger implementing rpcclient.Client for tests.
//
// The ledger verifies transaction signatures, simulates system transfers with preflight, honours
// a per-request airdrop cap and advances the block height every time it is queried, so that
// blockhash expiry can be exercised deterministically.
package solfake

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	sollib "github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/smartcontractkit/solana-fund-transfer/chain/solana/provider/rpcclient"
)

// Method names accepted by Calls and FailNext.
const (
	MethodGetBalance           = "getBalance"
	MethodGetLatestBlockhash   = "getLatestBlockhash"
	MethodGetBlockHeight       = "getBlockHeight"
	MethodRequestAirdrop       = "requestAirdrop"
	MethodSendTransaction      = "sendTransaction"
	MethodGetSignatureStatuses = "getSignatureStatuses"
	MethodGetGenesisHash       = "getGenesisHash"
)

const systemTransferInstructionID = 2

// DefaultFee is the fee charged to the payer of every transaction, matching 1 signature at
// 5000 lamports.
const DefaultFee uint64 = 5000

var _ rpcclient.Client = (*Ledger)(nil)

type signatureState struct {
	polls int
	err   any
}

// Ledger is an in-memory fake of a Solana cluster.
type Ledger struct {
	// AirdropCap is the maximum lamports per airdrop request. Defaults to 2 SOL.
	AirdropCap uint64
	// ValidityBlocks is how many blocks a blockhash stays valid. Defaults to 150.
	ValidityBlocks uint64
	// ConfirmAfterPolls is how many status polls report "processed" before a signature reports
	// "confirmed".
	ConfirmAfterPolls int
	// DropAirdrops makes airdrop signatures never land.
	DropAirdrops bool
	// DropTransactions makes submitted transactions never land.
	DropTransactions bool
	// FailExecution makes submitted transactions pass preflight and then fail on chain.
	FailExecution bool
	// Genesis is returned by GetGenesisHash.
	Genesis sollib.Hash

	mu          sync.Mutex
	height      uint64
	seq         uint64
	balances    map[sollib.PublicKey]uint64
	blockhashes map[sollib.Hash]uint64
	signatures  map[sollib.Signature]*signatureState
	calls       map[string]int
	failures    map[string][]error
	airdrops    []uint64
}

// New returns an empty ledger at block height 100.
func New() *Ledger {
	return &Ledger{
		AirdropCap:     2 * sollib.LAMPORTS_PER_SOL,
		ValidityBlocks: 150,
		height:         100,
		balances:       map[sollib.PublicKey]uint64{},
		blockhashes:    map[sollib.Hash]uint64{},
		signatures:     map[sollib.Signature]*signatureState{},
		calls:          map[string]int{},
		failures:       map[string][]error{},
	}
}

// Fund sets the balance of account.
func (l *Ledger) Fund(account sollib.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[account] = lamports
}

// Balance returns the balance of account.
func (l *Ledger) Balance(account sollib.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[account]
}

// Calls returns how many times method was invoked.
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.calls[method]
}

// TotalCalls returns the number of RPC calls of any method.
func (l *Ledger) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, n := range l.calls {
		total += n
	}

	return total
}

// Airdrops returns the lamports of every accepted airdrop request in order.
func (l *Ledger) Airdrops() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]uint64(nil), l.airdrops...)
}

// FailNext makes the next call to method return err instead of being served.
func (l *Ledger) FailNext(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failures[method] = append(l.failures[method], err)
}

// enter records a call and pops an injected failure. Callers must hold l.mu.
func (l *Ledger) enter(method string) error {
	l.calls[method]++
	if queue := l.failures[method]; len(queue) > 0 {
		l.failures[method] = queue[1:]
		return queue[0]
	}

	return nil
}

func (l *Ledger) GetBalance(
	_ context.Context, account sollib.PublicKey, _ solrpc.CommitmentType,
) (*solrpc.GetBalanceResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(MethodGetBalance); err != nil {
		return nil, err
	}

	return &solrpc.GetBalanceResult{Value: l.balances[account]}, nil
}

func (l *Ledger) GetLatestBlockhash(
	_ context.Context, _ solrpc.CommitmentType,
) (*solrpc.GetLatestBlockhashResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(MethodGetLatestBlockhash); err != nil {
		return nil, err
	}

	var h sollib.Hash
	binary.BigEndian.PutUint64(h[24:], l.nextSeq())
	lastValid := l.height + l.ValidityBlocks
	l.blockhashes[h] = lastValid

	return &solrpc.GetLatestBlockhashResult{
		Value: &solrpc.LatestBlockhashResult{
			Blockhash:            h,
			LastValidBlockHeight: lastValid,
		},
	}, nil
}

// GetBlockHeight returns the current height and then advances it by one block.
func (l *Ledger) GetBlockHeight(_ context.Context, _ solrpc.CommitmentType) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(MethodGetBlockHeight); err != nil {
		return 0, err
	}
	h := l.height
	l.height++

	return h, nil
}

// SetBlockHeight moves the chain to height.
func (l *Ledger) SetBlockHeight(height uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.height = height
}

func (l *Ledger) RequestAirdrop(
	_ context.Context, account sollib.PublicKey, lamports uint64, _ solrpc.CommitmentType,
) (sollib.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(MethodRequestAirdrop); err != nil {
		return sollib.Signature{}, err
	}
	if lamports > l.AirdropCap {
		return sollib.Signature{}, &jsonrpc.RPCError{
			Code:    -32600,
			Message: fmt.Sprintf("airdrop request of %d lamports exceeds cap of %d", lamports, l.AirdropCap),
		}
	}

	var sig sollib.Signature
	binary.BigEndian.PutUint64(sig[56:], l.nextSeq())
	l.airdrops = append(l.airdrops, lamports)

	if !l.DropAirdrops {
		l.balances[account] += lamports
		l.signatures[sig] = &signatureState{}
	}

	return sig, nil
}

func (l *Ledger) SendTransactionWithOpts(
	_ context.Context, tx *sollib.Transaction, opts solrpc.TransactionOpts,
) (sollib.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(MethodSendTransaction); err != nil {
		return sollib.Signature{}, err
	}

	if err := tx.VerifySignatures(); err != nil {
		return sollib.Signature{}, &jsonrpc.RPCError{Code: -32003, Message: "Transaction signature verification failure"}
	}
	if len(tx.Signatures) == 0 {
		return sollib.Signature{}, &jsonrpc.RPCError{Code: -32003, Message: "Transaction has no signatures"}
	}
	lastValid, ok := l.blockhashes[tx.Message.RecentBlockhash]
	if !ok || l.height > lastValid {
		return sollib.Signature{}, &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"}
	}

	payer := tx.Message.AccountKeys[0]
	from, to, lamports, err := decodeTransfer(tx)
	if err != nil {
		return sollib.Signature{}, &jsonrpc.RPCError{Code: -32602, Message: err.Error()}
	}

	sig := tx.Signatures[0]
	state := &signatureState{}

	debit := lamports
	if from == payer {
		debit += DefaultFee
	}
	if l.balances[from] < debit {
		if !opts.SkipPreflight {
			return sollib.Signature{}, &jsonrpc.RPCError{
				Code:    -32002,
				Message: "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.",
			}
		}
		state.err = map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 1}}}
	}

	if l.FailExecution {
		state.err = map[string]any{"InstructionError": []any{0, "ProgramFailedToComplete"}}
	}
	if l.DropTransactions {
		return sig, nil
	}
	if state.err == nil {
		l.balances[from] -= debit
		l.balances[to] += lamports
	}
	l.signatures[sig] = state

	return sig, nil
}

func (l *Ledger) GetSignatureStatuses(
	_ context.Context, _ bool, sigs ...sollib.Signature,
) (*solrpc.GetSignatureStatusesResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(MethodGetSignatureStatuses); err != nil {
		return nil, err
	}

	out := &solrpc.GetSignatureStatusesResult{Value: make([]*solrpc.SignatureStatusesResult, len(sigs))}
	for i, sig := range sigs {
		state, ok := l.signatures[sig]
		if !ok {
			continue
		}

		status := solrpc.ConfirmationStatusConfirmed
		if state.polls < l.ConfirmAfterPolls {
			status = solrpc.ConfirmationStatusProcessed
		}
		state.polls++

		out.Value[i] = &solrpc.SignatureStatusesResult{
			Slot:               l.height,
			Err:                state.err,
			ConfirmationStatus: status,
		}
	}

	return out, nil
}

func (l *Ledger) GetGenesisHash(_ context.Context) (sollib.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(MethodGetGenesisHash); err != nil {
		return sollib.Hash{}, err
	}

	return l.Genesis, nil
}

func (l *Ledger) nextSeq() uint64 {
	l.seq++
	return l.seq
}

// decodeTransfer extracts a system program transfer from the first instruction of tx.
func decodeTransfer(tx *sollib.Transaction) (from, to sollib.PublicKey, lamports uint64, err error) {
	if len(tx.Message.Instructions) != 1 {
		return from, to, 0, fmt.Errorf("expected 1 instruction, got %d", len(tx.Message.Instructions))
	}
	ix := tx.Message.Instructions[0]
	keys := tx.Message.AccountKeys

	if int(ix.ProgramIDIndex) >= len(keys) || !keys[ix.ProgramIDIndex].Equals(sollib.SystemProgramID) {
		return from, to, 0, errors.New("instruction is not a system program instruction")
	}
	if len(ix.Accounts) != 2 || len(ix.Data) != 12 {
		return from, to, 0, errors.New("malformed system instruction")
	}
	if binary.LittleEndian.Uint32(ix.Data[:4]) != systemTransferInstructionID {
		return from, to, 0, errors.New("system instruction is not a transfer")
	}

	return keys[ix.Accounts[0]], keys[ix.Accounts[1]], binary.LittleEndian.Uint64(ix.Data[4:]), nil
}
