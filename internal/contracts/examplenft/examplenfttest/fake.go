// Package examplenfttest serves a fake ExampleNFT contract from an in-memory
// backend.
package examplenfttest

import (
	"errors"
	"fmt"
	"math/big"

	"Web3-Scaffold/internal/contracts/examplenft"
	"Web3-Scaffold/internal/web3/web3test"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// State is the contract storage the fake answers from.
type State struct {
	Name      string
	Symbol    string
	MaxSupply int64
	BaseURI   string
	Owners    map[int64]common.Address
	Balances  map[common.Address]int64
}

// DefaultState returns a small collection with two minted tokens.
func DefaultState() State {
	alice := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	return State{
		Name:      "ExampleNFT",
		Symbol:    "EXAMPLE",
		MaxSupply: 1000,
		BaseURI:   "ipfs://example/",
		Owners:    map[int64]common.Address{1: alice, 2: alice},
		Balances:  map[common.Address]int64{alice: 2},
	}
}

// NewBackend returns a backend answering ExampleNFT view calls from state.
func NewBackend(state State) *web3test.Backend {
	backend := web3test.NewBackend()
	methods := examplenft.Descriptor().ABI().Methods

	respond := func(name string, fn func(args []any) ([]any, error)) {
		method := methods[name]
		backend.Handle(method.ID, func(input []byte) ([]byte, error) {
			args, err := method.Inputs.Unpack(input)
			if err != nil {
				return nil, err
			}
			out, err := fn(args)
			if err != nil {
				return nil, err
			}
			return method.Outputs.Pack(out...)
		})
	}

	respond("name", func([]any) ([]any, error) { return []any{state.Name}, nil })
	respond("symbol", func([]any) ([]any, error) { return []any{state.Symbol}, nil })
	respond("totalSupply", func([]any) ([]any, error) { return []any{big.NewInt(int64(len(state.Owners)))}, nil })
	respond("MAX_SUPPLY", func([]any) ([]any, error) { return []any{big.NewInt(state.MaxSupply)}, nil })
	respond("balanceOf", func(args []any) ([]any, error) {
		return []any{big.NewInt(state.Balances[args[0].(common.Address)])}, nil
	})
	respond("ownerOf", func(args []any) ([]any, error) {
		owner, ok := state.Owners[args[0].(*big.Int).Int64()]
		if !ok {
			return nil, errors.New("execution reverted: ERC721: invalid token ID")
		}
		return []any{owner}, nil
	})
	respond("getApproved", func([]any) ([]any, error) { return []any{common.Address{}}, nil })
	respond("tokenURI", func(args []any) ([]any, error) {
		id := args[0].(*big.Int).Int64()
		if _, ok := state.Owners[id]; !ok {
			return nil, errors.New("execution reverted: ERC721: invalid token ID")
		}
		return []any{fmt.Sprintf("%s%d", state.BaseURI, id)}, nil
	})
	return backend
}

// TransferLog builds the log a Transfer(from, to, tokenId) emits.
func TransferLog(contract, from, to common.Address, tokenID int64, block uint64) types.Log {
	return types.Log{
		Address: contract,
		Topics: []common.Hash{
			examplenft.Descriptor().ABI().Events["Transfer"].ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
			common.BigToHash(big.NewInt(tokenID)),
		},
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block)*1000 + tokenID)),
	}
}
