package web3test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"Web3-Scaffold/internal/web3"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
)

// Provider is a named connection over a Backend.
type Provider struct {
	name    string
	chainID *big.Int
	backend *Backend
}

// NewProvider wraps backend as a web3.Transactor for chainID.
func NewProvider(name string, chainID int64, backend *Backend) *Provider {
	if backend == nil {
		backend = NewBackend()
	}
	return &Provider{name: name, chainID: big.NewInt(chainID), backend: backend}
}

func (p *Provider) Name() string                        { return p.name }
func (p *Provider) ChainID() *big.Int                   { return new(big.Int).Set(p.chainID) }
func (p *Provider) Caller() bind.ContractCaller         { return p.backend }
func (p *Provider) Filterer() bind.ContractFilterer     { return p.backend }
func (p *Provider) Transactor() bind.ContractTransactor { return p.backend }

// Backend returns the in-memory backend.
func (p *Provider) Backend() *Backend { return p.backend }

// FetchChainSnapshot reports the backend's current block.
func (p *Provider) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	block, err := p.backend.BlockNumber(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, err
	}
	return web3.ChainSnapshot{
		ChainID:     "0x" + p.chainID.Text(16),
		BlockNumber: fmt.Sprintf("0x%x", block),
		Notes:       "in-memory backend",
	}, nil
}

// WaitMined polls the backend for the receipt of tx.
func (p *Provider) WaitMined(ctx context.Context, tx *types.Transaction, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	for {
		receipt, err := p.backend.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, gethcore.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

var (
	_ web3.Transactor = (*Provider)(nil)
	_ web3.Inspector  = (*Provider)(nil)
)
