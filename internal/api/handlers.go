package api

import (
	"math/big"
	"net/http"
	"strings"

	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/web3"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

type deploymentInfo struct {
	Deployer        string `json:"deployer,omitempty"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
}

type contractInfo struct {
	Contract   string              `json:"contract"`
	Address    string              `json:"address"`
	ChainID    int64               `json:"chain_id"`
	Network    string              `json:"network"`
	Provider   string              `json:"provider"`
	Writable   bool                `json:"writable"`
	Methods    []string            `json:"methods"`
	Events     []string            `json:"events"`
	Deployment deploymentInfo      `json:"deployment"`
	Chain      *web3.ChainSnapshot `json:"chain,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	nft := s.contracts.ExampleNFT
	desc := nft.Binding().Descriptor()
	dep := s.contracts.Deployment
	writeJSON(w, http.StatusOK, contractInfo{
		Contract: desc.Name(),
		Address:  nft.Address().Hex(),
		ChainID:  s.contracts.TargetChainID,
		Network:  s.contracts.Network,
		Provider: nft.Reader().Provider().Name(),
		Writable: nft.Writable(),
		Methods:  desc.Methods(),
		Events:   desc.Events(),
		Deployment: deploymentInfo{
			Deployer:        dep.Deployer,
			TransactionHash: dep.TransactionHash,
			BlockNumber:     dep.BlockNumber,
		},
		Chain: s.snapshot(r),
	})
}

// snapshot reports the head of the bound chain, nil when the connection
// cannot be inspected or the node does not answer.
func (s *Server) snapshot(r *http.Request) *web3.ChainSnapshot {
	in, ok := web3.Inspect(s.contracts.ExampleNFT.Reader().Provider())
	if !ok {
		return nil
	}
	snap, err := in.FetchChainSnapshot(r.Context())
	if err != nil {
		return nil
	}
	return &snap
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	reader := s.contracts.ExampleNFT.Reader()
	opts := &bind.CallOpts{Context: r.Context()}

	total, err := reader.TotalSupply(opts)
	if err != nil {
		writeError(w, err)
		return
	}
	maxSupply, err := reader.MaxSupply(opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"total_supply": total.String(),
		"max_supply":   maxSupply.String(),
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	id, ok := new(big.Int).SetString(r.PathValue("id"), 10)
	if !ok || id.Sign() < 0 {
		writeError(w, xerrors.New(xerrors.CodeInvalidArgument, "token id 必须是非负整数"))
		return
	}

	reader := s.contracts.ExampleNFT.Reader()
	opts := &bind.CallOpts{Context: r.Context()}
	owner, err := reader.OwnerOf(opts, id)
	if err != nil {
		writeError(w, err)
		return
	}
	uri, err := reader.TokenURI(opts, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token_id":  id.String(),
		"owner":     owner.Hex(),
		"token_uri": uri,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.PathValue("address"))
	if !common.IsHexAddress(raw) {
		writeError(w, xerrors.New(xerrors.CodeInvalidArgument, "地址格式无效"))
		return
	}
	owner := common.HexToAddress(raw)

	balance, err := s.contracts.ExampleNFT.Reader().BalanceOf(&bind.CallOpts{Context: r.Context()}, owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"owner":   owner.Hex(),
		"balance": balance.String(),
	})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	writer, err := s.contracts.ExampleNFT.Writer()
	if err != nil {
		writeError(w, err)
		return
	}
	tx, err := writer.Mint(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"tx_hash": tx.Hash().Hex(),
		"from":    writer.Account().Hex(),
		"nonce":   tx.Nonce(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	in, ok := web3.Inspect(s.contracts.ExampleNFT.Reader().Provider())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	snap, err := in.FetchChainSnapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "chain": snap})
}
