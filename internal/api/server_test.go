package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Web3-Scaffold/internal/auth"
	"Web3-Scaffold/internal/contracts"
	"Web3-Scaffold/internal/contracts/examplenft"
	"Web3-Scaffold/internal/contracts/examplenft/examplenfttest"
	"Web3-Scaffold/internal/deployments"
	"Web3-Scaffold/internal/web3"
	"Web3-Scaffold/internal/web3/signer"
	"Web3-Scaffold/internal/web3/web3test"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anvilKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var nftAddress = common.HexToAddress("0x9A676e781A523b5d0C0e43731313A708CB607508")

func newTestServer(t *testing.T) (*Server, *web3test.Provider) {
	t.Helper()
	provider := web3test.NewProvider("goerli", 5, examplenfttest.NewBackend(examplenfttest.DefaultState()))
	nft, err := examplenft.Connect(nftAddress, provider)
	require.NoError(t, err)
	c := &contracts.Contracts{
		TargetChainID: 5,
		Network:       "goerli",
		ExampleNFT:    nft,
		Deployment:    deployments.Record{DeployedTo: nftAddress.Hex(), BlockNumber: 9812345},
	}
	return NewServer(":0", c), provider
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandleInfo(t *testing.T) {
	server, _ := newTestServer(t)
	rec, body := do(t, server.Handler(), http.MethodGet, "/api/v1/contracts/example-nft")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ExampleNFT", body["contract"])
	assert.Equal(t, nftAddress.Hex(), body["address"])
	assert.Equal(t, float64(5), body["chain_id"])
	assert.Equal(t, "goerli", body["network"])
	assert.Equal(t, "goerli", body["provider"])
	assert.Equal(t, false, body["writable"])
	assert.Contains(t, body["methods"], "mint")
	chain, ok := body["chain"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0x1", chain["block_number"])
}

func TestHandleReads(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	rec, body := do(t, h, http.MethodGet, "/api/v1/contracts/example-nft/supply")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", body["total_supply"])
	assert.Equal(t, "1000", body["max_supply"])

	rec, body = do(t, h, http.MethodGet, "/api/v1/contracts/example-nft/tokens/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", body["owner"])
	assert.Equal(t, "ipfs://example/1", body["token_uri"])

	rec, body = do(t, h, http.MethodGet, "/api/v1/contracts/example-nft/balances/0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", body["balance"])
}

func TestHandleReadErrors(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	cases := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/v1/contracts/example-nft/tokens/abc", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"/api/v1/contracts/example-nft/tokens/-1", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"/api/v1/contracts/example-nft/tokens/404", http.StatusBadGateway, "CONTRACT_CALL_FAILURE"},
		{"/api/v1/contracts/example-nft/balances/0x1234", http.StatusBadRequest, "INVALID_ARGUMENT"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec, body := do(t, h, http.MethodGet, tc.path)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, body["code"])
		})
	}

	rec, _ := do(t, h, http.MethodDelete, "/api/v1/contracts/example-nft")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleMintRequiresSigner(t *testing.T) {
	server, provider := newTestServer(t)
	h := server.Handler()

	rec, body := do(t, h, http.MethodPost, "/api/v1/contracts/example-nft/mint")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SIGNER_REQUIRED", body["code"])
	assert.Empty(t, provider.Backend().Sent())

	wallet, err := signer.FromHex(provider, anvilKey)
	require.NoError(t, err)
	require.NoError(t, server.contracts.ExampleNFT.ConnectSigner(wallet))

	rec, body = do(t, h, http.MethodPost, "/api/v1/contracts/example-nft/mint")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", body["from"])
	require.Len(t, provider.Backend().Sent(), 1)
	assert.Equal(t, provider.Backend().Sent()[0].Hash().Hex(), body["tx_hash"])
}

func TestMetricsAndHealth(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	rec, body := do(t, h, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	chain, ok := body["chain"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0x5", chain["chain_id"])
	assert.Equal(t, "0x1", chain["block_number"])

	do(t, h, http.MethodGet, "/api/v1/contracts/example-nft/supply")
	rec, _ = do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scaffold_http_requests_total")
	assert.Contains(t, rec.Body.String(), "scaffold_contract_calls_total")
}

func TestMintGuardedByToken(t *testing.T) {
	server, _ := newTestServer(t)
	guard, err := auth.NewGuard([]auth.Token{{Name: "ops", SHA256: auth.Digest("s3cret")}})
	require.NoError(t, err)
	WithGuard(guard)(server)
	h := server.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/v1/contracts/example-nft/mint")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts/example-nft/mint", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	authed := httptest.NewRecorder()
	h.ServeHTTP(authed, req)
	assert.Equal(t, http.StatusConflict, authed.Code)

	// reads stay open
	rec, _ = do(t, h, http.MethodGet, "/api/v1/contracts/example-nft/supply")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type unreachable struct {
	*web3test.Provider
}

func (unreachable) FetchChainSnapshot(context.Context) (web3.ChainSnapshot, error) {
	return web3.ChainSnapshot{}, errors.New("dial tcp 127.0.0.1:8545: connection refused")
}

func (unreachable) WaitMined(context.Context, *types.Transaction, time.Duration) (*types.Receipt, error) {
	return nil, errors.New("unreachable")
}

func TestHealthReportsUnreachableNode(t *testing.T) {
	server, provider := newTestServer(t)
	require.NoError(t, server.contracts.ExampleNFT.Connect(unreachable{provider}))

	rec, body := do(t, server.Handler(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body["status"])
	assert.Contains(t, body["error"], "connection refused")

	rec, body = do(t, server.Handler(), http.MethodGet, "/api/v1/contracts/example-nft")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, body, "chain")
}
