// Package binding couples a contract address and interface descriptor to a
// chain connection.
//
// Two variants exist. ReadOnly can call view methods and read logs over any
// web3.Provider. SignerBound additionally submits transactions and can only
// be obtained from a web3.Signer, so state-changing methods are unreachable
// on a connection that cannot sign. Handle is the shared, rebindable slot
// that hands out immutable snapshots of either variant.
package binding

import (
	"context"
	"fmt"
	"reflect"
	"time"

	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/observability/metrics"
	"Web3-Scaffold/internal/web3"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// ReadOnly is a contract binding over a read-only connection.
type ReadOnly struct {
	address  common.Address
	desc     *Descriptor
	provider web3.Provider
	contract *bind.BoundContract
}

// Bind creates a read-only binding. No network access happens here; an
// unreachable node or a wrong address only surfaces on the first call.
func Bind(address common.Address, desc *Descriptor, p web3.Provider) (*ReadOnly, error) {
	if desc == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "缺少合约接口描述")
	}
	if missing(p) {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("合约 %s 缺少链连接", desc.Name()))
	}
	if address == (common.Address{}) {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("合约 %s 的地址不能为空", desc.Name()))
	}
	return &ReadOnly{
		address:  address,
		desc:     desc,
		provider: p,
		contract: bind.NewBoundContract(address, desc.abi, p.Caller(), nil, p.Filterer()),
	}, nil
}

// Address returns the deployment address.
func (b *ReadOnly) Address() common.Address { return b.address }

// Descriptor returns the shared interface descriptor.
func (b *ReadOnly) Descriptor() *Descriptor { return b.desc }

// Provider returns the connection this binding talks to.
func (b *ReadOnly) Provider() web3.Provider { return b.provider }

// Connect returns a new read-only binding over p. The receiver is unchanged.
func (b *ReadOnly) Connect(p web3.Provider) (*ReadOnly, error) {
	return Bind(b.address, b.desc, p)
}

// WithSigner returns a signer-bound binding for the same contract.
func (b *ReadOnly) WithSigner(s web3.Signer) (*SignerBound, error) {
	return BindSigner(b.address, b.desc, s)
}

// Call invokes a constant method and returns its unpacked outputs.
func (b *ReadOnly) Call(opts *bind.CallOpts, method string, params ...any) ([]any, error) {
	started := time.Now()
	var out []any
	err := b.contract.Call(opts, &out, method, params...)
	metrics.ObserveContractCall(b.desc.name, method, metrics.ModeRead, err, time.Since(started))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeContractCallFailure, err, fmt.Sprintf("调用 %s.%s 失败", b.desc.name, method))
	}
	return out, nil
}

// FilterLogs retrieves past logs of the named event.
func (b *ReadOnly) FilterLogs(opts *bind.FilterOpts, name string, query ...[]any) (chan types.Log, event.Subscription, error) {
	return b.contract.FilterLogs(opts, name, query...)
}

// WatchLogs subscribes to future logs of the named event.
func (b *ReadOnly) WatchLogs(opts *bind.WatchOpts, name string, query ...[]any) (chan types.Log, event.Subscription, error) {
	return b.contract.WatchLogs(opts, name, query...)
}

// UnpackLog decodes log into out using the named event's signature.
func (b *ReadOnly) UnpackLog(out any, name string, log types.Log) error {
	return b.contract.UnpackLog(out, name, log)
}

// SignerBound is a contract binding whose connection can sign and submit
// transactions.
type SignerBound struct {
	*ReadOnly
	signer   web3.Signer
	contract *bind.BoundContract
}

// BindSigner creates a signer-bound binding. Reads also go through s.
func BindSigner(address common.Address, desc *Descriptor, s web3.Signer) (*SignerBound, error) {
	if missing(s) {
		return nil, xerrors.New(xerrors.CodeSignerRequired, "签名连接不能为空")
	}
	if id := s.ChainID(); id == nil || id.Sign() <= 0 {
		return nil, xerrors.New(xerrors.CodeSignerRequired, fmt.Sprintf("签名连接 %s 缺少有效的 chain id", s.Name()))
	}
	reader, err := Bind(address, desc, s)
	if err != nil {
		return nil, err
	}
	return &SignerBound{
		ReadOnly: reader,
		signer:   s,
		contract: bind.NewBoundContract(address, desc.abi, s.Caller(), s.Transactor(), s.Filterer()),
	}, nil
}

// Signer returns the signing connection.
func (b *SignerBound) Signer() web3.Signer { return b.signer }

// Transact signs and submits a call to a state-changing method using the
// signer's default transaction options.
func (b *SignerBound) Transact(ctx context.Context, method string, params ...any) (*types.Transaction, error) {
	opts, err := b.signer.TransactOpts(ctx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeSignerRequired, err, "获取交易签名参数失败")
	}
	return b.TransactWith(opts, method, params...)
}

// TransactWith submits with caller supplied options, e.g. a fixed nonce or
// a NoSend dry run.
func (b *SignerBound) TransactWith(opts *bind.TransactOpts, method string, params ...any) (*types.Transaction, error) {
	started := time.Now()
	tx, err := b.contract.Transact(opts, method, params...)
	metrics.ObserveContractCall(b.desc.name, method, metrics.ModeWrite, err, time.Since(started))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeContractCallFailure, err, fmt.Sprintf("发送 %s.%s 交易失败", b.desc.name, method))
	}
	return tx, nil
}

// missing reports whether p is nil, including a nil pointer stored in the
// interface.
func missing(p web3.Provider) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
