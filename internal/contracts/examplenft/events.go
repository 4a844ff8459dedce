package examplenft

import (
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// Transfer represents a Transfer event raised by the ExampleNFT contract.
// Mints have a zero From address.
type Transfer struct {
	From    common.Address
	To      common.Address
	TokenId *big.Int
	Raw     types.Log
}

// TransferIterator is returned from FilterTransfer and is used to iterate
// over the raw logs and unpacked data for Transfer events.
type TransferIterator struct {
	Event *Transfer

	reader *Reader
	logs   chan types.Log
	sub    ethereum.Subscription
	done   bool
	fail   error
}

// Next advances the iterator to the subsequent event, returning whether there
// are any more events found. In case of a retrieval or parsing error, false is
// returned and Error() can be queried for the exact failure.
func (it *TransferIterator) Next() bool {
	if it.fail != nil {
		return false
	}
	if it.done {
		select {
		case log := <-it.logs:
			return it.unpack(log)
		default:
			return false
		}
	}
	select {
	case log := <-it.logs:
		return it.unpack(log)
	case err := <-it.sub.Err():
		it.done = true
		it.fail = err
		return it.Next()
	}
}

func (it *TransferIterator) unpack(log types.Log) bool {
	ev, err := it.reader.ParseTransfer(log)
	if err != nil {
		it.fail = err
		return false
	}
	it.Event = ev
	return true
}

// Error returns any retrieval or parsing error occurred during filtering.
func (it *TransferIterator) Error() error { return it.fail }

// Close terminates the iteration process, releasing any pending underlying
// resources.
func (it *TransferIterator) Close() error {
	it.sub.Unsubscribe()
	return nil
}

func transferRules(from, to []common.Address, tokenId []*big.Int) ([]any, []any, []any) {
	var fromRule, toRule, idRule []any
	for _, item := range from {
		fromRule = append(fromRule, item)
	}
	for _, item := range to {
		toRule = append(toRule, item)
	}
	for _, item := range tokenId {
		idRule = append(idRule, item)
	}
	return fromRule, toRule, idRule
}

// FilterTransfer is a free log retrieval operation binding the contract event
// Transfer(address indexed from, address indexed to, uint256 indexed tokenId).
func (r *Reader) FilterTransfer(opts *bind.FilterOpts, from, to []common.Address, tokenId []*big.Int) (*TransferIterator, error) {
	fromRule, toRule, idRule := transferRules(from, to, tokenId)
	logs, sub, err := r.binding.FilterLogs(opts, "Transfer", fromRule, toRule, idRule)
	if err != nil {
		return nil, err
	}
	return &TransferIterator{reader: r, logs: logs, sub: sub}, nil
}

// WatchTransfer is a free log subscription operation binding the contract
// event Transfer. Decoded events are delivered to sink until the returned
// subscription is cancelled or fails.
func (r *Reader) WatchTransfer(opts *bind.WatchOpts, sink chan<- *Transfer, from, to []common.Address, tokenId []*big.Int) (event.Subscription, error) {
	fromRule, toRule, idRule := transferRules(from, to, tokenId)
	logs, sub, err := r.binding.WatchLogs(opts, "Transfer", fromRule, toRule, idRule)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				ev, err := r.ParseTransfer(log)
				if err != nil {
					return err
				}
				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// ParseTransfer is a log parse operation binding the contract event Transfer.
func (r *Reader) ParseTransfer(log types.Log) (*Transfer, error) {
	ev := new(Transfer)
	if err := r.binding.UnpackLog(ev, "Transfer", log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}
