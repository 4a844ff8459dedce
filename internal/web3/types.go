package web3

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainSnapshot represents summarized network metadata for UI/reporting.
type ChainSnapshot struct {
	ChainID     string `json:"chain_id"`
	BlockNumber string `json:"block_number"`
	Notes       string `json:"notes,omitempty"`
}

// Provider is a read-only connection to a chain node. It can query contract
// state and logs but cannot submit transactions.
type Provider interface {
	Name() string
	ChainID() *big.Int
	Caller() bind.ContractCaller
	Filterer() bind.ContractFilterer
}

// Transactor is a connection that can also estimate, price and broadcast
// transactions. It still needs a Signer to authorise them.
type Transactor interface {
	Provider
	Transactor() bind.ContractTransactor
}

// Signer is a connection able to authorise and submit transactions on
// behalf of one account.
type Signer interface {
	Transactor
	Account() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Inspector is implemented by connections that can report the chain head
// and wait for transaction receipts.
type Inspector interface {
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	WaitMined(ctx context.Context, tx *types.Transaction, interval time.Duration) (*types.Receipt, error)
}

// Inspect returns the Inspector behind p, looking through wrapping
// connections (such as signers) that expose Unwrap.
func Inspect(p Provider) (Inspector, bool) {
	for p != nil {
		if in, ok := p.(Inspector); ok {
			return in, true
		}
		u, ok := p.(interface{ Unwrap() Transactor })
		if !ok {
			return nil, false
		}
		next := u.Unwrap()
		if next == nil {
			return nil, false
		}
		p = next
	}
	return nil, false
}
