package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"Web3-Scaffold/internal/web3"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name    string
	ChainID int64
	RPCURL  string
	WSURL   string
	Notes   string
}

// Client is a transaction-capable connection to an EVM chain. It satisfies
// web3.Transactor; wrap it with a signer to authorise transactions.
type Client struct {
	name     string
	notes    string
	chainID  *big.Int
	backend  bind.ContractBackend
	filterer bind.ContractFilterer
	chain    chainReader
	verified atomic.Bool

	mu        sync.Mutex
	rpcClient *gethrpc.Client
	wsClient  *gethrpc.Client
}

// chainReader mirrors the subset of node queries used outside contract calls.
type chainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error)
}

// NewClient dials the configured RPC endpoints and returns a ready-to-use
// client. When cfg.ChainID is zero the id is queried from the node.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置以太坊 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}
	eth := ethclient.NewClient(rpcClient)

	chainID := big.NewInt(cfg.ChainID)
	queried := cfg.ChainID == 0
	if queried {
		chainID, err = eth.ChainID(ctx)
		if err != nil {
			rpcClient.Close()
			return nil, fmt.Errorf("获取链 ID 失败: %w", err)
		}
	}

	client := &Client{
		name:      cfg.Name,
		notes:     cfg.Notes,
		chainID:   chainID,
		backend:   eth,
		filterer:  eth,
		chain:     eth,
		rpcClient: rpcClient,
	}
	client.verified.Store(queried)

	// Log subscriptions need a streaming transport; plain HTTP can only poll.
	if wsURL := strings.TrimSpace(cfg.WSURL); wsURL != "" {
		if wsRPC, wsErr := gethrpc.DialContext(ctx, wsURL); wsErr == nil {
			client.wsClient = wsRPC
			client.filterer = ethclient.NewClient(wsRPC)
		}
	}
	return client, nil
}

// NewSimulatedClient wraps a go-ethereum simulated backend for testing
// purposes. The caller keeps ownership of the backend.
func NewSimulatedClient(name string, backend *simulated.Backend) (*Client, error) {
	sim := backend.Client()
	chainID, err := sim.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("获取模拟链 ID 失败: %w", err)
	}
	client := &Client{
		name:     name,
		notes:    "simulated backend",
		chainID:  chainID,
		backend:  sim,
		filterer: sim,
		chain:    sim,
	}
	client.verified.Store(true)
	return client, nil
}

// Name returns the chain name from chain.yaml.
func (c *Client) Name() string { return c.name }

// ChainID returns a copy of the chain id the client is bound to.
func (c *Client) ChainID() *big.Int {
	if c.chainID == nil {
		return nil
	}
	return new(big.Int).Set(c.chainID)
}

// Caller implements web3.Provider.
func (c *Client) Caller() bind.ContractCaller { return c.backend }

// Filterer implements web3.Provider, preferring the websocket endpoint.
func (c *Client) Filterer() bind.ContractFilterer { return c.filterer }

// Transactor implements web3.Transactor.
func (c *Client) Transactor() bind.ContractTransactor { return c.backend }

// Backend exposes the full go-ethereum contract backend, e.g. for deployments.
func (c *Client) Backend() bind.ContractBackend { return c.backend }

// Close releases network connections held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wsClient != nil {
		c.wsClient.Close()
		c.wsClient = nil
	}
	if c.rpcClient != nil {
		c.rpcClient.Close()
		c.rpcClient = nil
	}
}

// VerifyChainID checks the configured chain id against the node's
// eth_chainId. A successful check is remembered; failures are retried on the
// next call.
func (c *Client) VerifyChainID(ctx context.Context) error {
	if c.verified.Load() {
		return nil
	}
	remote, err := c.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("查询链 %s 的 chain id 失败: %w", c.name, err)
	}
	if remote.Cmp(c.chainID) != 0 {
		return fmt.Errorf("链 %s 配置的 chain_id %s 与节点返回的 %s 不一致", c.name, c.chainID, remote)
	}
	c.verified.Store(true)
	return nil
}

// FetchChainSnapshot gathers lightweight metadata from the chain.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	if c == nil || c.chain == nil {
		return web3.ChainSnapshot{}, errors.New("未初始化的以太坊客户端")
	}
	blockNumber, err := c.chain.BlockNumber(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("获取最新区块高度失败: %w", err)
	}
	return web3.ChainSnapshot{
		ChainID:     toHexBig(c.chainID),
		BlockNumber: fmt.Sprintf("0x%x", blockNumber),
		Notes:       c.notes,
	}, nil
}

// WaitMined polls for the receipt of tx until it is available or ctx ends.
func (c *Client) WaitMined(ctx context.Context, tx *coretypes.Transaction, interval time.Duration) (*coretypes.Receipt, error) {
	if tx == nil {
		return nil, errors.New("交易不能为空")
	}
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.chain.TransactionReceipt(ctx, tx.Hash())
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, gethcore.NotFound) {
			return nil, fmt.Errorf("查询交易回执失败: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func toHexBig(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return "0x" + n.Text(16)
}

var (
	_ web3.Transactor = (*Client)(nil)
	_ web3.Inspector  = (*Client)(nil)
)
