package signer

import (
	"context"
	"math/big"
	"testing"

	"Web3-Scaffold/internal/web3"
	"Web3-Scaffold/internal/web3/web3test"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known anvil account #0.
const anvilKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestFromHexDerivesAccount(t *testing.T) {
	conn := web3test.NewProvider("foundry", 31337, nil)

	s, err := FromHex(conn, anvilKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), s.Account())
	assert.Equal(t, "foundry", s.Name())
}

func TestTransactOptsSignsForChain(t *testing.T) {
	conn := web3test.NewProvider("goerli", 5, nil)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	s, err := NewKeyed(conn, key)
	require.NoError(t, err)

	ctx := context.Background()
	opts, err := s.TransactOpts(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Account(), opts.From)
	assert.Equal(t, ctx, opts.Context)

	tx := types.NewTx(&types.DynamicFeeTx{ChainID: big.NewInt(5), Gas: 21000, GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(2)})
	signed, err := opts.Signer(opts.From, tx)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(5)), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Account(), sender)
}

func TestFromEnv(t *testing.T) {
	conn := web3test.NewProvider("foundry", 31337, nil)

	_, err := FromEnv(conn, "SCAFFOLD_TEST_MISSING_KEY")
	assert.Error(t, err)

	t.Setenv("SCAFFOLD_TEST_KEY", anvilKey)
	s, err := FromEnv(conn, "SCAFFOLD_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), s.Account())
}

func TestNewKeyedValidation(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = NewKeyed(nil, key)
	assert.Error(t, err)
	_, err = NewKeyed(web3test.NewProvider("x", 1, nil), nil)
	assert.Error(t, err)
	_, err = NewKeyed(web3test.NewProvider("x", 0, nil), key)
	assert.Error(t, err)
	_, err = FromHex(web3test.NewProvider("x", 1, nil), "not-a-key")
	assert.Error(t, err)
}

func TestInspectLooksThroughSigner(t *testing.T) {
	backend := web3test.NewBackend()
	conn := web3test.NewProvider("foundry", 31337, backend)
	s, err := FromHex(conn, anvilKey)
	require.NoError(t, err)
	assert.Same(t, conn, s.Unwrap())

	in, ok := web3.Inspect(s)
	require.True(t, ok)
	snap, err := in.FetchChainSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0x7a69", snap.ChainID)
	assert.Equal(t, "0x1", snap.BlockNumber)

	_, ok = web3.Inspect(nil)
	assert.False(t, ok)
}

func TestNilKeyedIsSafe(t *testing.T) {
	var k *Keyed
	assert.Empty(t, k.Name())
	assert.Nil(t, k.ChainID())
	assert.Nil(t, k.Unwrap())
}
