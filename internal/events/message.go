package events

import (
	"time"

	"Web3-Scaffold/internal/contracts/examplenft"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Message is the queue payload for one Transfer log.
type Message struct {
	ID          string    `json:"id"`
	Contract    string    `json:"contract"`
	Address     string    `json:"address"`
	ChainID     int64     `json:"chain_id"`
	Network     string    `json:"network"`
	Event       string    `json:"event"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	TokenID     string    `json:"token_id"`
	Mint        bool      `json:"mint"`
	BlockNumber uint64    `json:"block_number"`
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint      `json:"log_index"`
	Removed     bool      `json:"removed"`
	ObservedAt  time.Time `json:"observed_at"`
}

// NewTransferMessage converts a decoded Transfer event.
func NewTransferMessage(ev *examplenft.Transfer, chainID int64, network string, now time.Time) Message {
	return Message{
		ID:          uuid.NewString(),
		Contract:    examplenft.ContractName,
		Address:     ev.Raw.Address.Hex(),
		ChainID:     chainID,
		Network:     network,
		Event:       "Transfer",
		From:        ev.From.Hex(),
		To:          ev.To.Hex(),
		TokenID:     ev.TokenId.String(),
		Mint:        ev.From == (common.Address{}),
		BlockNumber: ev.Raw.BlockNumber,
		TxHash:      ev.Raw.TxHash.Hex(),
		LogIndex:    ev.Raw.Index,
		Removed:     ev.Raw.Removed,
		ObservedAt:  now.UTC(),
	}
}
