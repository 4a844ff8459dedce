package binding

import (
	"context"
	"math/big"
	"testing"

	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/web3/signer"
	"Web3-Scaffold/internal/web3/web3test"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterABI = `[
  {"type":"function","name":"count","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"increment","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"event","name":"Incremented","anonymous":false,"inputs":[{"name":"value","type":"uint256","indexed":true}]}
]`

var counterAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func newCounterBackend(t *testing.T, desc *Descriptor, count int64) *web3test.Backend {
	t.Helper()
	backend := web3test.NewBackend()
	method := desc.ABI().Methods["count"]
	backend.Handle(method.ID, func([]byte) ([]byte, error) {
		return method.Outputs.Pack(big.NewInt(count))
	})
	return backend
}

func readCount(t *testing.T, b *ReadOnly) int64 {
	t.Helper()
	out, err := b.Call(nil, "count")
	require.NoError(t, err)
	require.Len(t, out, 1)
	return out[0].(*big.Int).Int64()
}

func TestDescriptor(t *testing.T) {
	desc, err := NewDescriptor("Counter", counterABI)
	require.NoError(t, err)

	assert.Equal(t, "Counter", desc.Name())
	assert.Equal(t, []string{"count", "increment"}, desc.Methods())
	assert.Equal(t, []string{"Incremented"}, desc.Events())
	assert.True(t, desc.Mutating("increment"))
	assert.False(t, desc.Mutating("count"))
	assert.False(t, desc.Mutating("missing"))

	_, err = NewDescriptor("Broken", "{not json")
	assert.Error(t, err)
	_, err = NewDescriptor("", counterABI)
	assert.Error(t, err)
	assert.Panics(t, func() { MustDescriptor("Broken", "{") })
}

func TestBindValidation(t *testing.T) {
	desc := MustDescriptor("Counter", counterABI)
	provider := web3test.NewProvider("local", 31337, nil)

	_, err := Bind(counterAddress, nil, provider)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
	_, err = Bind(counterAddress, desc, nil)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
	_, err = Bind(common.Address{}, desc, provider)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
	_, err = BindSigner(counterAddress, desc, nil)
	assert.Equal(t, xerrors.CodeSignerRequired, xerrors.CodeOf(err))
}

func TestHandlesAreIndependent(t *testing.T) {
	desc := MustDescriptor("Counter", counterABI)
	provider := web3test.NewProvider("goerli", 5, newCounterBackend(t, desc, 1))

	first, err := NewHandle(counterAddress, desc, provider)
	require.NoError(t, err)
	second, err := NewHandle(counterAddress, desc, provider)
	require.NoError(t, err)

	assert.Equal(t, first.Address(), second.Address())
	assert.Same(t, first.Descriptor(), second.Descriptor())

	other := web3test.NewProvider("other", 5, newCounterBackend(t, desc, 99))
	require.NoError(t, first.Connect(other))

	assert.Equal(t, int64(99), readCount(t, first.Reader()))
	assert.Equal(t, int64(1), readCount(t, second.Reader()))
	assert.Equal(t, "goerli", second.Reader().Provider().Name())
}

func TestConnectKeepsEarlierSnapshots(t *testing.T) {
	desc := MustDescriptor("Counter", counterABI)
	oldBackend := newCounterBackend(t, desc, 1)
	newBackend := newCounterBackend(t, desc, 2)

	h, err := NewHandle(counterAddress, desc, web3test.NewProvider("fallback", 5, oldBackend))
	require.NoError(t, err)

	inFlight := h.Reader()
	require.NoError(t, h.Connect(web3test.NewProvider("wallet", 5, newBackend)))

	assert.Equal(t, int64(2), readCount(t, h.Reader()))
	assert.Equal(t, int64(1), readCount(t, inFlight))
	assert.Len(t, oldBackend.Calls(), 1)
	assert.Len(t, newBackend.Calls(), 1)
	assert.Equal(t, counterAddress, h.Reader().Address())
}

func TestWriterRequiresSigner(t *testing.T) {
	desc := MustDescriptor("Counter", counterABI)
	backend := newCounterBackend(t, desc, 0)
	provider := web3test.NewProvider("goerli", 5, backend)

	h, err := NewHandle(counterAddress, desc, provider)
	require.NoError(t, err)
	assert.False(t, h.Writable())

	_, err = h.Writer()
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeSignerRequired, xerrors.CodeOf(err))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	wallet, err := signer.NewKeyed(provider, key)
	require.NoError(t, err)

	require.NoError(t, h.Connect(wallet))
	assert.True(t, h.Writable())

	writer, err := h.Writer()
	require.NoError(t, err)
	tx, err := writer.Transact(context.Background(), "increment")
	require.NoError(t, err)

	sent := backend.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, tx.Hash(), sent[0].Hash())
	require.NotNil(t, sent[0].To())
	assert.Equal(t, counterAddress, *sent[0].To())
	assert.Equal(t, desc.ABI().Methods["increment"].ID, sent[0].Data()[:4])
	assert.Equal(t, int64(5), sent[0].ChainId().Int64())

	// Back to a read-only provider drops the write capability.
	require.NoError(t, h.Connect(provider))
	assert.False(t, h.Writable())
}

func TestConnectFailureKeepsPreviousConnection(t *testing.T) {
	desc := MustDescriptor("Counter", counterABI)
	h, err := NewHandle(counterAddress, desc, web3test.NewProvider("goerli", 5, newCounterBackend(t, desc, 3)))
	require.NoError(t, err)

	require.Error(t, h.Connect(nil))
	assert.Equal(t, "goerli", h.Reader().Provider().Name())
	assert.Equal(t, int64(3), readCount(t, h.Reader()))
}

func TestCallWrapsBackendErrors(t *testing.T) {
	desc := MustDescriptor("Counter", counterABI)
	r, err := Bind(counterAddress, desc, web3test.NewProvider("empty", 5, nil))
	require.NoError(t, err)

	_, err = r.Call(nil, "count")
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeContractCallFailure, xerrors.CodeOf(err))
}

func TestReadOnlyConnectReturnsNewBinding(t *testing.T) {
	desc := MustDescriptor("Counter", counterABI)
	original, err := Bind(counterAddress, desc, web3test.NewProvider("a", 5, newCounterBackend(t, desc, 1)))
	require.NoError(t, err)

	moved, err := original.Connect(web3test.NewProvider("b", 5, newCounterBackend(t, desc, 2)))
	require.NoError(t, err)

	assert.Equal(t, "a", original.Provider().Name())
	assert.Equal(t, "b", moved.Provider().Name())
	assert.Equal(t, original.Address(), moved.Address())
	assert.Same(t, original.Descriptor(), moved.Descriptor())
}

type unsignedChain struct {
	*web3test.Provider
}

func (unsignedChain) Account() common.Address { return common.Address{} }

func (unsignedChain) TransactOpts(context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{}, nil
}

func TestConnectSignerRejectsUnusableSigners(t *testing.T) {
	desc := MustDescriptor("Counter", counterABI)
	h, err := NewHandle(counterAddress, desc, web3test.NewProvider("goerli", 5, newCounterBackend(t, desc, 7)))
	require.NoError(t, err)

	var unset *signer.Keyed
	require.NotPanics(t, func() { err = h.ConnectSigner(unset) })
	assert.Equal(t, xerrors.CodeSignerRequired, xerrors.CodeOf(err))

	require.NotPanics(t, func() { err = h.Connect(unset) })
	assert.Error(t, err)

	err = h.ConnectSigner(unsignedChain{web3test.NewProvider("nochain", 0, nil)})
	assert.Equal(t, xerrors.CodeSignerRequired, xerrors.CodeOf(err))

	assert.False(t, h.Writable())
	assert.Equal(t, int64(7), readCount(t, h.Reader()))
}
