package deployments

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	xerrors "Web3-Scaffold/internal/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkName(t *testing.T) {
	name, ok := NetworkName(5)
	assert.True(t, ok)
	assert.Equal(t, "goerli", name)

	name, ok = NetworkName(11155111)
	assert.True(t, ok)
	assert.Equal(t, "sepolia", name)

	_, ok = NetworkName(424242)
	assert.False(t, ok)
}

func TestRecordAddress(t *testing.T) {
	rec := Record{DeployedTo: "0x9A676e781A523b5d0C0e43731313A708CB607508"}
	addr, err := rec.Address()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x9A676e781A523b5d0C0e43731313A708CB607508"), addr)

	_, err = Record{}.Address()
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	_, err = Record{DeployedTo: "0x1234"}.Address()
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}

func TestFileSourceLookup(t *testing.T) {
	fsys := fstest.MapFS{
		"goerli/ExampleNFT.json":  {Data: []byte(`{"deployedTo":"0x9A676e781A523b5d0C0e43731313A708CB607508","blockNumber":12}`)},
		"goerli/Broken.json":      {Data: []byte(`{"deployedTo":`)},
		"foundry/ExampleNFT.json": {Data: []byte(`{"deployedTo":"not-an-address"}`)},
	}
	src := NewFileSource(fsys)
	ctx := context.Background()

	rec, err := src.Lookup(ctx, "goerli", "ExampleNFT")
	require.NoError(t, err)
	assert.Equal(t, "goerli", rec.Network)
	assert.Equal(t, "ExampleNFT", rec.Contract)
	assert.Equal(t, uint64(12), rec.BlockNumber)

	_, err = src.Lookup(ctx, "sepolia", "ExampleNFT")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, xerrors.CodeNotFound, xerrors.CodeOf(err))

	_, err = src.Lookup(ctx, "goerli", "Broken")
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	_, err = src.Lookup(ctx, "foundry", "ExampleNFT")
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	_, err = src.Lookup(ctx, "", "ExampleNFT")
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.Lookup(cancelled, "goerli", "ExampleNFT")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSourceList(t *testing.T) {
	fsys := fstest.MapFS{
		"goerli/ExampleNFT.json":  {Data: []byte(`{"deployedTo":"0x9A676e781A523b5d0C0e43731313A708CB607508"}`)},
		"foundry/ExampleNFT.json": {Data: []byte(`{"deployedTo":"0x5FbDB2315678afecb367f032d93F642f64180aa3"}`)},
		"README.md":               {Data: []byte("ignored")},
	}
	records, err := NewFileSource(fsys).List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "foundry", records[0].Network)
	assert.Equal(t, "goerli", records[1].Network)
}

func TestSourceFunc(t *testing.T) {
	var src Source = SourceFunc(func(_ context.Context, network, contract string) (Record, error) {
		return Record{Network: network, Contract: contract, DeployedTo: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}, nil
	})
	rec, err := src.Lookup(context.Background(), "foundry", "ExampleNFT")
	require.NoError(t, err)
	assert.Equal(t, "foundry", rec.Network)
}
