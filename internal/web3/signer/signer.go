// Package signer turns a transaction-capable connection into a web3.Signer
// backed by a local ECDSA key.
package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"Web3-Scaffold/internal/web3"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Keyed signs transactions with an in-process private key.
type Keyed struct {
	conn    web3.Transactor
	key     *ecdsa.PrivateKey
	account common.Address
}

// NewKeyed binds key to conn. The connection must report its chain id so
// that transactions are signed with EIP-155 replay protection.
func NewKeyed(conn web3.Transactor, key *ecdsa.PrivateKey) (*Keyed, error) {
	if conn == nil {
		return nil, errors.New("签名器缺少链连接")
	}
	if key == nil {
		return nil, errors.New("签名私钥不能为空")
	}
	if id := conn.ChainID(); id == nil || id.Sign() <= 0 {
		return nil, fmt.Errorf("链 %s 缺少有效的 chain id", conn.Name())
	}
	return &Keyed{
		conn:    conn,
		key:     key,
		account: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// FromHex parses a hex encoded private key, with or without 0x prefix.
func FromHex(conn web3.Transactor, hexKey string) (*Keyed, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("解析签名私钥失败: %w", err)
	}
	return NewKeyed(conn, key)
}

// FromEnv reads the private key from the named environment variable.
func FromEnv(conn web3.Transactor, name string) (*Keyed, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("环境变量 %s 未设置签名私钥", name)
	}
	return FromHex(conn, raw)
}

// Name returns the underlying chain name.
func (k *Keyed) Name() string {
	if k == nil || k.conn == nil {
		return ""
	}
	return k.conn.Name()
}

// ChainID returns the chain id transactions are signed for, nil on an
// unbound signer.
func (k *Keyed) ChainID() *big.Int {
	if k == nil || k.conn == nil {
		return nil
	}
	return k.conn.ChainID()
}

func (k *Keyed) Caller() bind.ContractCaller         { return k.conn.Caller() }
func (k *Keyed) Filterer() bind.ContractFilterer     { return k.conn.Filterer() }
func (k *Keyed) Transactor() bind.ContractTransactor { return k.conn.Transactor() }

// Unwrap returns the connection the signer submits through.
func (k *Keyed) Unwrap() web3.Transactor {
	if k == nil {
		return nil
	}
	return k.conn
}

// Account returns the address transactions are sent from.
func (k *Keyed) Account() common.Address { return k.account }

// TransactOpts returns fresh transaction options bound to ctx. Gas and nonce
// are left empty so the contract backend fills them in.
func (k *Keyed) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(k.key, new(big.Int).Set(k.ChainID()))
	if err != nil {
		return nil, fmt.Errorf("创建交易签名器失败: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

var _ web3.Signer = (*Keyed)(nil)
