package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"Web3-Scaffold/internal/config"
	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/web3"
	"Web3-Scaffold/internal/web3/ethereum"
)

// Registry manages a set of chain connections keyed by human readable names
// and indexed by chain id. It is the provider resolver the contract binder
// asks for a connection to the target chain.
type Registry struct {
	defaultChain string
	clients      map[string]web3.Transactor
	byChainID    map[int64]string
}

// NewRegistry loads chain definitions and instantiates concrete clients.
func NewRegistry(ctx context.Context, cfg config.Web3Config) (*Registry, error) {
	defs, err := web3.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]web3.Transactor)
	closeAll := func() {
		for _, c := range clients {
			closeClient(c)
		}
	}
	for name, chain := range defs.Chains {
		chainType := strings.ToLower(strings.TrimSpace(chain.Type))
		if chainType == "" {
			chainType = "evm"
		}
		switch chainType {
		case "evm":
			client, err := ethereum.NewClient(ctx, ethereum.Config{
				Name:    name,
				ChainID: chain.ChainID,
				RPCURL:  chain.RPCURL,
				WSURL:   chain.WSURL,
				Notes:   chain.Description,
			})
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
			}
			clients[name] = client
		default:
			closeAll()
			return nil, fmt.Errorf("链 %s 使用了不支持的类型 %s", name, chain.Type)
		}
	}

	if len(clients) == 0 && strings.TrimSpace(cfg.RPCURL) != "" {
		client, err := ethereum.NewClient(ctx, ethereum.Config{Name: "default", ChainID: cfg.TargetChainID, RPCURL: cfg.RPCURL})
		if err != nil {
			return nil, err
		}
		clients["default"] = client
		if cfg.DefaultChain == "" {
			cfg.DefaultChain = "default"
		}
	}

	registry, err := NewStaticRegistry(cfg.DefaultChain, mapValues(clients)...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return registry, nil
}

// NewStaticRegistry builds a registry over already constructed connections.
// An empty defaultChain selects the alphabetically first name.
func NewStaticRegistry(defaultChain string, conns ...web3.Transactor) (*Registry, error) {
	if len(conns) == 0 {
		return nil, errors.New("未配置任何链的 RPC 端点")
	}

	r := &Registry{
		clients:   make(map[string]web3.Transactor, len(conns)),
		byChainID: make(map[int64]string, len(conns)),
	}
	for _, conn := range conns {
		name := conn.Name()
		if _, dup := r.clients[name]; dup {
			return nil, fmt.Errorf("重复的链名称 %s", name)
		}
		r.clients[name] = conn
		if id := conn.ChainID(); id != nil && id.Sign() > 0 {
			if other, dup := r.byChainID[id.Int64()]; dup {
				return nil, fmt.Errorf("链 %s 与 %s 使用了相同的 chain_id %s", name, other, id)
			}
			r.byChainID[id.Int64()] = name
		}
	}

	if defaultChain == "" {
		defaultChain = r.Chains()[0]
	}
	if _, ok := r.clients[defaultChain]; !ok {
		return nil, fmt.Errorf("默认链 %s 未在配置中找到", defaultChain)
	}
	r.defaultChain = defaultChain
	return r, nil
}

// Provider resolves the read-only connection for chainID.
func (r *Registry) Provider(ctx context.Context, chainID int64) (web3.Provider, error) {
	return r.Transactor(ctx, chainID)
}

// Transactor resolves the transaction-capable connection for chainID.
func (r *Registry) Transactor(ctx context.Context, chainID int64) (web3.Transactor, error) {
	if r == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未初始化的链客户端注册表")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, ok := r.byChainID[chainID]
	if !ok {
		return nil, xerrors.New(xerrors.CodeProviderUnavailable,
			fmt.Sprintf("链 %d 未在注册表中配置", chainID),
			xerrors.WithMetadata("chain_id", fmt.Sprint(chainID)))
	}
	client := r.clients[name]
	if v, ok := client.(chainVerifier); ok {
		if err := v.VerifyChainID(ctx); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeProviderUnavailable, err,
				fmt.Sprintf("链 %s 的节点与配置不符", name),
				xerrors.WithMetadata("chain_id", fmt.Sprint(chainID)))
		}
	}
	return client, nil
}

// chainVerifier is implemented by clients that can confirm the node serves
// the chain id they were configured with.
type chainVerifier interface {
	VerifyChainID(ctx context.Context) error
}

// Default returns the connection configured as default chain.
func (r *Registry) Default() (web3.Transactor, error) {
	if r == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未初始化的链客户端注册表")
	}
	client, ok := r.clients[r.defaultChain]
	if !ok {
		return nil, fmt.Errorf("默认链 %s 未在注册表中", r.defaultChain)
	}
	return client, nil
}

// Client returns the connection identified by name.
func (r *Registry) Client(name string) (web3.Transactor, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[name]
	return client, ok
}

// Chains returns the list of registered chain names.
func (r *Registry) Chains() []string {
	if r == nil {
		return nil
	}
	return sortedKeys(r.clients)
}

// Close releases all connections managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, client := range r.clients {
		closeClient(client)
		delete(r.clients, name)
	}
	r.byChainID = map[int64]string{}
}

func closeClient(c web3.Transactor) {
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}

func sortedKeys(m map[string]web3.Transactor) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mapValues(m map[string]web3.Transactor) []web3.Transactor {
	values := make([]web3.Transactor, 0, len(m))
	for _, name := range sortedKeys(m) {
		values = append(values, m[name])
	}
	return values
}
