// Package examplenft is the typed binding of the ExampleNFT ERC-721
// contract. Connect plays the role of a generated factory: it couples the
// deployment address and the embedded ABI to a connection and returns a
// Handle whose Reader is always available and whose Writer only exists once
// the handle is connected to a signer.
package examplenft

import (
	"context"
	_ "embed"
	"math/big"
	"sync"

	"Web3-Scaffold/internal/web3"
	"Web3-Scaffold/internal/web3/binding"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractName is the artifact name used in deployment records.
const ContractName = "ExampleNFT"

// ABI is the contract ABI as emitted by the compiler.
//
//go:embed ExampleNFT.abi.json
var ABI string

var (
	descriptorOnce sync.Once
	descriptor     *binding.Descriptor
)

// Descriptor returns the shared ExampleNFT interface descriptor.
func Descriptor() *binding.Descriptor {
	descriptorOnce.Do(func() {
		descriptor = binding.MustDescriptor(ContractName, ABI)
	})
	return descriptor
}

// Handle is a rebindable ExampleNFT client.
type Handle struct {
	handle *binding.Handle
}

// Connect binds the contract deployed at address to conn.
func Connect(address common.Address, conn web3.Provider) (*Handle, error) {
	h, err := binding.NewHandle(address, Descriptor(), conn)
	if err != nil {
		return nil, err
	}
	return &Handle{handle: h}, nil
}

// Address returns the deployment address.
func (h *Handle) Address() common.Address { return h.handle.Address() }

// Binding exposes the untyped handle.
func (h *Handle) Binding() *binding.Handle { return h.handle }

// Connect swaps the connection; pass a web3.Signer to enable writes.
func (h *Handle) Connect(conn web3.Provider) error { return h.handle.Connect(conn) }

// ConnectSigner swaps the connection for a signing one.
func (h *Handle) ConnectSigner(s web3.Signer) error { return h.handle.ConnectSigner(s) }

// Writable reports whether Writer would succeed.
func (h *Handle) Writable() bool { return h.handle.Writable() }

// Reader returns a read-only client over the current connection.
func (h *Handle) Reader() *Reader { return &Reader{binding: h.handle.Reader()} }

// Writer returns a signer-bound client or a SIGNER_REQUIRED error.
func (h *Handle) Writer() (*Writer, error) {
	b, err := h.handle.Writer()
	if err != nil {
		return nil, err
	}
	return &Writer{Reader: Reader{binding: b.ReadOnly}, binding: b}, nil
}

// Reader exposes the view methods and events of ExampleNFT.
type Reader struct {
	binding *binding.ReadOnly
}

// NewReader wraps an existing read-only binding.
func NewReader(b *binding.ReadOnly) *Reader { return &Reader{binding: b} }

// Address returns the deployment address.
func (r *Reader) Address() common.Address { return r.binding.Address() }

// Provider returns the connection calls are sent to.
func (r *Reader) Provider() web3.Provider { return r.binding.Provider() }

// Name is a free data retrieval call binding the contract method 0x06fdde03.
func (r *Reader) Name(opts *bind.CallOpts) (string, error) {
	out, err := r.binding.Call(opts, "name")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// Symbol is a free data retrieval call binding the contract method 0x95d89b41.
func (r *Reader) Symbol(opts *bind.CallOpts) (string, error) {
	out, err := r.binding.Call(opts, "symbol")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// TotalSupply is a free data retrieval call binding the contract method 0x18160ddd.
func (r *Reader) TotalSupply(opts *bind.CallOpts) (*big.Int, error) {
	return r.callBig(opts, "totalSupply")
}

// MaxSupply is a free data retrieval call binding the contract method MAX_SUPPLY().
func (r *Reader) MaxSupply(opts *bind.CallOpts) (*big.Int, error) {
	return r.callBig(opts, "MAX_SUPPLY")
}

// BalanceOf is a free data retrieval call binding the contract method 0x70a08231.
func (r *Reader) BalanceOf(opts *bind.CallOpts, owner common.Address) (*big.Int, error) {
	return r.callBig(opts, "balanceOf", owner)
}

// OwnerOf is a free data retrieval call binding the contract method 0x6352211e.
func (r *Reader) OwnerOf(opts *bind.CallOpts, tokenId *big.Int) (common.Address, error) {
	return r.callAddress(opts, "ownerOf", tokenId)
}

// GetApproved is a free data retrieval call binding the contract method 0x081812fc.
func (r *Reader) GetApproved(opts *bind.CallOpts, tokenId *big.Int) (common.Address, error) {
	return r.callAddress(opts, "getApproved", tokenId)
}

// TokenURI is a free data retrieval call binding the contract method 0xc87b56dd.
func (r *Reader) TokenURI(opts *bind.CallOpts, tokenId *big.Int) (string, error) {
	out, err := r.binding.Call(opts, "tokenURI", tokenId)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (r *Reader) callBig(opts *bind.CallOpts, method string, params ...any) (*big.Int, error) {
	out, err := r.binding.Call(opts, method, params...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (r *Reader) callAddress(opts *bind.CallOpts, method string, params ...any) (common.Address, error) {
	out, err := r.binding.Call(opts, method, params...)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// Writer adds the state-changing methods. It can only be obtained from a
// handle connected to a web3.Signer.
type Writer struct {
	Reader
	binding *binding.SignerBound
}

// Account returns the address transactions are sent from.
func (w *Writer) Account() common.Address { return w.binding.Signer().Account() }

// Mint is a paid mutator transaction binding the contract method 0x1249c58b.
func (w *Writer) Mint(ctx context.Context) (*types.Transaction, error) {
	return w.binding.Transact(ctx, "mint")
}

// Approve is a paid mutator transaction binding the contract method 0x095ea7b3.
func (w *Writer) Approve(ctx context.Context, spender common.Address, tokenId *big.Int) (*types.Transaction, error) {
	return w.binding.Transact(ctx, "approve", spender, tokenId)
}

// TransferFrom is a paid mutator transaction binding the contract method 0x23b872dd.
func (w *Writer) TransferFrom(ctx context.Context, from, to common.Address, tokenId *big.Int) (*types.Transaction, error) {
	return w.binding.Transact(ctx, "transferFrom", from, to, tokenId)
}

// MintWith submits mint with explicit transaction options.
func (w *Writer) MintWith(opts *bind.TransactOpts) (*types.Transaction, error) {
	return w.binding.TransactWith(opts, "mint")
}
