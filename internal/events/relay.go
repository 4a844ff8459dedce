package events

import (
	"context"
	"errors"
	"time"

	"Web3-Scaffold/internal/contracts"
	"Web3-Scaffold/internal/contracts/examplenft"
	"Web3-Scaffold/internal/observability/metrics"
	"Web3-Scaffold/pkg/logger"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Relay forwards ExampleNFT Transfer events to a Publisher.
type Relay struct {
	nft       *examplenft.Handle
	publisher Publisher
	chainID   int64
	network   string
	buffer    int
	retry     time.Duration
	now       func() time.Time
}

// RelayOption customises a Relay.
type RelayOption func(*Relay)

// WithRetryInterval sets the pause before resubscribing after a failure.
func WithRetryInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.retry = d
		}
	}
}

// WithBuffer sets the size of the decoded event buffer.
func WithBuffer(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.buffer = n
		}
	}
}

// NewRelay creates a relay for the ExampleNFT handle in c.
func NewRelay(c *contracts.Contracts, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		nft:       c.ExampleNFT,
		publisher: publisher,
		chainID:   c.TargetChainID,
		network:   c.Network,
		buffer:    64,
		retry:     5 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run watches Transfer events until ctx ends. A broken subscription is
// re-established through the handle's current reader, so a rebind takes
// effect on the next subscription.
func (r *Relay) Run(ctx context.Context) error {
	log := logger.Named("events")
	for {
		err := r.watch(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Transfer 订阅中断，稍后重试", "error", err, "retry", r.retry)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retry):
		}
	}
}

func (r *Relay) watch(ctx context.Context) error {
	log := logger.Named("events")
	reader := r.nft.Reader()

	sink := make(chan *examplenft.Transfer, r.buffer)
	sub, err := reader.WatchTransfer(&bind.WatchOpts{Context: ctx}, sink, nil, nil, nil)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	log.Info("开始转发 Transfer 事件",
		"address", reader.Address().Hex(),
		"provider", reader.Provider().Name())

	for {
		select {
		case ev := <-sink:
			msg := NewTransferMessage(ev, r.chainID, r.network, r.now())
			err := r.publisher.Publish(ctx, msg)
			metrics.ObserveRelayedEvent(examplenft.ContractName, msg.Event, err)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error("发布 Transfer 事件失败", "id", msg.ID, "tx", msg.TxHash, "error", err)
			}
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("Transfer 订阅已关闭")
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
