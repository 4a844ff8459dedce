// Package web3test provides an in-memory contract backend and provider for
// tests that exercise bindings without a chain node.
package web3test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// CallHandler answers eth_call for one method selector.
type CallHandler func(input []byte) ([]byte, error)

// Backend implements bind.ContractBackend entirely in memory. Calls are
// dispatched by 4-byte selector, transactions are recorded, and logs can be
// pushed to active subscriptions with EmitLog.
type Backend struct {
	mu       sync.Mutex
	handlers map[[4]byte]CallHandler
	calls    []gethcore.CallMsg
	sent     []*types.Transaction
	logs     []types.Log
	subs     map[*logSub]struct{}
	nonce    uint64
	baseFee  *big.Int

	block    uint64
	receipts map[common.Hash]*types.Receipt
	hold     bool
	revert   bool
}

type logSub struct {
	query gethcore.FilterQuery
	ch    chan<- types.Log
	fail  chan error
	done  chan struct{}
}

// NewBackend returns an empty backend with a 1 gwei base fee.
func NewBackend() *Backend {
	return &Backend{
		handlers: make(map[[4]byte]CallHandler),
		subs:     make(map[*logSub]struct{}),
		baseFee:  big.NewInt(1_000_000_000),
		block:    1,
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// Handle registers the response for a method selector.
func (b *Backend) Handle(selector []byte, fn CallHandler) {
	var key [4]byte
	copy(key[:], selector)
	b.mu.Lock()
	b.handlers[key] = fn
	b.mu.Unlock()
}

// Calls returns the eth_call messages received so far.
func (b *Backend) Calls() []gethcore.CallMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]gethcore.CallMsg(nil), b.calls...)
}

// Sent returns the transactions broadcast so far.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

// HoldReceipts stops mining: sent transactions stay pending and have no
// receipt until hold is lifted.
func (b *Backend) HoldReceipts(hold bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hold = hold
	if hold {
		return
	}
	for _, tx := range b.sent {
		if _, ok := b.receipts[tx.Hash()]; !ok {
			b.mineLocked(tx)
		}
	}
}

// RevertTransactions makes later transactions mine with a failed status.
func (b *Backend) RevertTransactions(revert bool) {
	b.mu.Lock()
	b.revert = revert
	b.mu.Unlock()
}

// BlockNumber returns the height of the last mined block.
func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block, nil
}

// TransactionReceipt returns the receipt of a mined transaction or
// ethereum.NotFound while it is pending.
func (b *Backend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	receipt, ok := b.receipts[hash]
	if !ok {
		return nil, gethcore.NotFound
	}
	return receipt, nil
}

func (b *Backend) mineLocked(tx *types.Transaction) {
	b.block++
	status := types.ReceiptStatusSuccessful
	if b.revert {
		status = types.ReceiptStatusFailed
	}
	b.receipts[tx.Hash()] = &types.Receipt{
		Type:        tx.Type(),
		Status:      status,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas(),
		BlockNumber: new(big.Int).SetUint64(b.block),
	}
}

// Subscriptions reports the number of live log subscriptions.
func (b *Backend) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// EmitLog stores the log and delivers it to every matching subscription.
func (b *Backend) EmitLog(l types.Log) {
	b.mu.Lock()
	b.logs = append(b.logs, l)
	targets := make([]*logSub, 0, len(b.subs))
	for s := range b.subs {
		if matches(s.query, l) {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	for _, s := range targets {
		select {
		case s.ch <- l:
		case <-s.done:
		}
	}
}

// FailSubscriptions terminates every live log subscription with err, as a
// dropped websocket would.
func (b *Backend) FailSubscriptions(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.fail <- err:
		default:
		}
	}
}

func (b *Backend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x00}, nil
}

func (b *Backend) CallContract(ctx context.Context, call gethcore.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(call.Data) < 4 {
		return nil, errors.New("web3test: call data shorter than a selector")
	}
	var key [4]byte
	copy(key[:], call.Data[:4])

	b.mu.Lock()
	b.calls = append(b.calls, call)
	fn, ok := b.handlers[key]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("web3test: execution reverted (no handler for 0x%x)", key)
	}
	return fn(call.Data[4:])
}

func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.block), BaseFee: new(big.Int).Set(b.baseFee)}, nil
}

func (b *Backend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return b.CodeAt(ctx, account, nil)
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonce, nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.baseFee), nil
}

func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) EstimateGas(ctx context.Context, call gethcore.CallMsg) (uint64, error) {
	return 150_000, nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.sent = append(b.sent, tx)
	b.nonce++
	if !b.hold {
		b.mineLocked(tx)
	}
	b.mu.Unlock()
	return nil
}

func (b *Backend) FilterLogs(ctx context.Context, query gethcore.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.Log
	for _, l := range b.logs {
		if matches(query, l) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (b *Backend) SubscribeFilterLogs(ctx context.Context, query gethcore.FilterQuery, ch chan<- types.Log) (gethcore.Subscription, error) {
	s := &logSub{query: query, ch: ch, fail: make(chan error, 1), done: make(chan struct{})}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			close(s.done)
		}()
		select {
		case <-quit:
			return nil
		case err := <-s.fail:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}), nil
}

func matches(q gethcore.FilterQuery, l types.Log) bool {
	if len(q.Addresses) > 0 {
		found := false
		for _, addr := range q.Addresses {
			if addr == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(l.Topics) {
			return false
		}
		found := false
		for _, topic := range alternatives {
			if topic == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var _ bind.ContractBackend = (*Backend)(nil)
