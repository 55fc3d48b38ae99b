// Package cointest provides an in-memory Coin contract backend for tests.
package cointest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// Backend answers balances calls from memory and replays logs on demand.
type Backend struct {
	abi abi.ABI

	mu           sync.Mutex
	balances     map[common.Address]*big.Int
	balancesAt   map[uint64]map[common.Address]*big.Int
	failures     map[common.Address]error
	logs         []types.Log
	calls        []Call
	subscribeErr error

	feed   event.Feed
	subErr chan error
}

// Call records one balances call.
type Call struct {
	Holder common.Address
	Block  *big.Int
}

// NewBackend returns a backend serving the given ABI.
func NewBackend(parsed abi.ABI) *Backend {
	return &Backend{
		abi:        parsed,
		balances:   make(map[common.Address]*big.Int),
		balancesAt: make(map[uint64]map[common.Address]*big.Int),
		failures:   make(map[common.Address]error),
		subErr:     make(chan error, 1),
	}
}

// SetBalance sets the latest balance of holder.
func (b *Backend) SetBalance(holder common.Address, balance *big.Int) {
	b.mu.Lock()
	b.balances[holder] = new(big.Int).Set(balance)
	b.mu.Unlock()
}

// SetBalanceAt sets the balance of holder as of block.
func (b *Backend) SetBalanceAt(block uint64, holder common.Address, balance *big.Int) {
	b.mu.Lock()
	if b.balancesAt[block] == nil {
		b.balancesAt[block] = make(map[common.Address]*big.Int)
	}
	b.balancesAt[block][holder] = new(big.Int).Set(balance)
	b.mu.Unlock()
}

// FailBalance makes every balances call for holder fail with err; nil clears it.
func (b *Backend) FailBalance(holder common.Address, err error) {
	b.mu.Lock()
	if err == nil {
		delete(b.failures, holder)
	} else {
		b.failures[holder] = err
	}
	b.mu.Unlock()
}

// FailSubscribe makes SubscribeFilterLogs fail with err.
func (b *Backend) FailSubscribe(err error) {
	b.mu.Lock()
	b.subscribeErr = err
	b.mu.Unlock()
}

// AddLogs stores logs served by FilterLogs.
func (b *Backend) AddLogs(logs ...types.Log) {
	b.mu.Lock()
	b.logs = append(b.logs, logs...)
	b.mu.Unlock()
}

// Emit delivers log to every live subscription and returns how many received it.
func (b *Backend) Emit(log types.Log) int {
	return b.feed.Send(log)
}

// EndSubscriptions terminates live subscriptions with err.
func (b *Backend) EndSubscriptions(err error) {
	b.subErr <- err
}

// Calls returns the balances calls seen so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallContract implements coin.Backend.
func (b *Backend) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("short call data")
	}
	method, err := b.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	if method.Name != "balances" {
		return nil, fmt.Errorf("unexpected method %s", method.Name)
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	holder, ok := args[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected holder type %T", args[0])
	}

	b.mu.Lock()
	var block *big.Int
	if blockNumber != nil {
		block = new(big.Int).Set(blockNumber)
	}
	b.calls = append(b.calls, Call{Holder: holder, Block: block})
	failure := b.failures[holder]
	balance := b.balances[holder]
	if block != nil {
		if atBlock, ok := b.balancesAt[block.Uint64()][holder]; ok {
			balance = atBlock
		}
	}
	b.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	if balance == nil {
		balance = new(big.Int)
	}
	return method.Outputs.Pack(balance)
}

// FilterLogs implements coin.Backend.
func (b *Backend) FilterLogs(_ context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Log, 0)
	for _, log := range b.logs {
		if query.FromBlock != nil && log.BlockNumber < query.FromBlock.Uint64() {
			continue
		}
		if query.ToBlock != nil && log.BlockNumber > query.ToBlock.Uint64() {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

// SubscribeFilterLogs implements coin.Backend.
func (b *Backend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, sink chan<- types.Log) (ethereum.Subscription, error) {
	b.mu.Lock()
	subscribeErr := b.subscribeErr
	b.mu.Unlock()
	if subscribeErr != nil {
		return nil, subscribeErr
	}

	inner := b.feed.Subscribe(sink)
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer inner.Unsubscribe()
		select {
		case <-quit:
			return nil
		case err := <-b.subErr:
			return err
		}
	}), nil
}

// SentLog builds a Sent log for contract following the ABI's indexed layout.
func SentLog(parsed abi.ABI, contract, from, to common.Address, amount *big.Int, block uint64, index uint) (types.Log, error) {
	ev, ok := parsed.Events["Sent"]
	if !ok {
		return types.Log{}, fmt.Errorf("abi has no Sent event")
	}

	args := []interface{}{from, to, amount}
	topics := []common.Hash{ev.ID}
	data := make([]interface{}, 0, len(args))
	for i, input := range ev.Inputs {
		if !input.Indexed {
			data = append(data, args[i])
			continue
		}
		switch v := args[i].(type) {
		case common.Address:
			topics = append(topics, common.BytesToHash(v.Bytes()))
		case *big.Int:
			topics = append(topics, common.BigToHash(v))
		}
	}

	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return types.Log{}, fmt.Errorf("pack Sent: %w", err)
	}

	return types.Log{
		Address:     contract,
		Topics:      topics,
		Data:        packed,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block<<16 | uint64(index))),
		Index:       index,
	}, nil
}
