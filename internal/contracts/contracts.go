// Package contracts builds the application's contract clients once at
// startup. The resulting Contracts value is owned by the caller and passed
// to the API server, the event relay and the CLI.
package contracts

import (
	"context"
	"errors"
	"fmt"

	"Web3-Scaffold/internal/contracts/examplenft"
	"Web3-Scaffold/internal/deployments"
	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/web3"
	"Web3-Scaffold/pkg/logger"
)

// Resolver returns the connection to use for a chain id.
type Resolver interface {
	Provider(ctx context.Context, chainID int64) (web3.Provider, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, chainID int64) (web3.Provider, error)

// Provider calls f.
func (f ResolverFunc) Provider(ctx context.Context, chainID int64) (web3.Provider, error) {
	return f(ctx, chainID)
}

// Options are the inputs of New.
type Options struct {
	TargetChainID int64
	Resolver      Resolver
	Deployments   deployments.Source
}

// Contracts holds the bound contract clients for the target chain.
type Contracts struct {
	TargetChainID int64
	Network       string

	ExampleNFT *examplenft.Handle
	Deployment deployments.Record
}

// New resolves the provider for the target chain, loads the ExampleNFT
// deployment record for that chain's network and binds the two. Any failure
// aborts construction and no Contracts value is returned.
func New(ctx context.Context, opts Options) (*Contracts, error) {
	if opts.Resolver == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置链连接解析器")
	}
	if opts.Deployments == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置部署记录来源")
	}

	network, ok := deployments.NetworkName(opts.TargetChainID)
	if !ok {
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("chain id %d 没有对应的部署网络", opts.TargetChainID),
			xerrors.WithMetadata("chain_id", fmt.Sprint(opts.TargetChainID)))
	}

	provider, err := opts.Resolver.Provider(ctx, opts.TargetChainID)
	if err != nil {
		return nil, wrapInit(err, fmt.Sprintf("解析链 %d 的连接失败", opts.TargetChainID))
	}
	if provider == nil {
		return nil, xerrors.New(xerrors.CodeProviderUnavailable,
			fmt.Sprintf("链 %d 没有可用连接", opts.TargetChainID))
	}

	record, err := opts.Deployments.Lookup(ctx, network, examplenft.ContractName)
	if err != nil {
		return nil, wrapInit(err, fmt.Sprintf("加载 %s 在 %s 上的部署记录失败", examplenft.ContractName, network))
	}
	address, err := record.Address()
	if err != nil {
		return nil, err
	}

	nft, err := examplenft.Connect(address, provider)
	if err != nil {
		return nil, err
	}

	logger.Named("contracts").Info("合约客户端已绑定",
		"contract", examplenft.ContractName,
		"network", network,
		"chain_id", opts.TargetChainID,
		"address", address.Hex(),
		"provider", provider.Name(),
		"writable", nft.Writable())

	return &Contracts{
		TargetChainID: opts.TargetChainID,
		Network:       network,
		ExampleNFT:    nft,
		Deployment:    record,
	}, nil
}

// wrapInit keeps coded errors as they are and marks everything else as an
// initialization failure.
func wrapInit(err error, message string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if _, ok := xerrors.From(err); ok {
		return err
	}
	return xerrors.Wrap(xerrors.CodeInitializationFailure, err, message)
}
