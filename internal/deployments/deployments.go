// Package deployments loads the deployment records produced by the contract
// deploy pipeline. A record maps a (network, contract) pair to the address
// the contract was deployed to.
package deployments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	xerrors "Web3-Scaffold/internal/errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotFound is returned by sources that hold no record for the pair.
var ErrNotFound = errors.New("deployment record not found")

// Record is one deployment artifact, e.g. deploys/goerli/ExampleNFT.json.
type Record struct {
	Network         string `json:"network,omitempty"`
	Contract        string `json:"contract,omitempty"`
	DeployedTo      string `json:"deployedTo"`
	Deployer        string `json:"deployer,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
	BlockNumber     uint64 `json:"blockNumber,omitempty"`
}

// Address parses DeployedTo.
func (r Record) Address() (common.Address, error) {
	raw := strings.TrimSpace(r.DeployedTo)
	if raw == "" {
		return common.Address{}, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("部署记录 %s/%s 缺少 deployedTo", r.Network, r.Contract))
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("部署记录 %s/%s 的地址 %q 无效", r.Network, r.Contract, raw))
	}
	return common.HexToAddress(raw), nil
}

// Validate checks that the record carries a usable address.
func (r Record) Validate() error {
	_, err := r.Address()
	return err
}

// Decode parses a record file and stamps it with network and contract when
// the file itself does not name them.
func Decode(data []byte, network, contract string) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err,
			fmt.Sprintf("解析部署记录 %s/%s 失败", network, contract))
	}
	if rec.Network == "" {
		rec.Network = network
	}
	if rec.Contract == "" {
		rec.Contract = contract
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Source looks up deployment records.
type Source interface {
	Lookup(ctx context.Context, network, contract string) (Record, error)
}

// Lister enumerates every known record.
type Lister interface {
	List(ctx context.Context) ([]Record, error)
}

// Store is a writable record registry.
type Store interface {
	Source
	Lister
	Save(ctx context.Context, rec Record) error
}

// Invalidator drops a cached copy of a record.
type Invalidator interface {
	Invalidate(ctx context.Context, network, contract string) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, network, contract string) (Record, error)

// Lookup calls f.
func (f SourceFunc) Lookup(ctx context.Context, network, contract string) (Record, error) {
	return f(ctx, network, contract)
}

var networks = map[int64]string{
	1:        "mainnet",
	5:        "goerli",
	137:      "polygon",
	31337:    "foundry",
	80001:    "mumbai",
	11155111: "sepolia",
}

// NetworkName returns the deploy directory name used for chainID.
func NetworkName(chainID int64) (string, bool) {
	name, ok := networks[chainID]
	return name, ok
}
