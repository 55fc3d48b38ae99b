package coin

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the provider surface the contract binding needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, sink chan<- types.Log) (ethereum.Subscription, error)
}

// Contract is a read-only binding to a deployed Coin contract.
type Contract struct {
	address common.Address
	abi     abi.ABI
	backend Backend
	sentID  common.Hash
}

// NewContract binds address and ABI to the backend.
func NewContract(address common.Address, parsed abi.ABI, backend Backend) (*Contract, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	if address == (common.Address{}) {
		return nil, fmt.Errorf("contract address is required")
	}
	if err := validateABI(parsed); err != nil {
		return nil, err
	}

	return &Contract{
		address: address,
		abi:     parsed,
		backend: backend,
		sentID:  parsed.Events[EventSent].ID,
	}, nil
}

// Address returns the bound contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Balances calls balances(holder) at block; nil block means latest.
func (c *Contract) Balances(ctx context.Context, holder common.Address, block *big.Int) (*big.Int, error) {
	data, err := c.abi.Pack(MethodBalances, holder)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", MethodBalances, err)
	}
	msg := ethereum.CallMsg{To: &c.address, Data: data}
	resp, err := c.backend.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s(%s): %w", MethodBalances, holder.Hex(), err)
	}
	values, err := c.abi.Unpack(MethodBalances, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", MethodBalances, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %s values: %d", MethodBalances, len(values))
	}
	return asBigInt(values[0])
}

// SentQuery builds the log filter for Sent events of this contract.
func (c *Contract) SentQuery(fromBlock, toBlock *big.Int) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{c.sentID}},
	}
}

// WatchSent subscribes to Sent logs emitted from now on.
func (c *Contract) WatchSent(ctx context.Context, sink chan<- types.Log) (ethereum.Subscription, error) {
	return c.backend.SubscribeFilterLogs(ctx, c.SentQuery(nil, nil), sink)
}

// FilterSent returns the Sent events in the inclusive block range.
func (c *Contract) FilterSent(ctx context.Context, fromBlock, toBlock uint64) ([]SentEvent, error) {
	query := c.SentQuery(new(big.Int).SetUint64(fromBlock), new(big.Int).SetUint64(toBlock))
	logs, err := c.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]SentEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		ev, err := c.UnpackSent(log)
		if err != nil {
			return nil, fmt.Errorf("log %s:%d: %w", log.TxHash.Hex(), log.Index, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// UnpackSent decodes a Sent log. Indexed inputs are read from topics and the
// rest from data, so both declarations of the event are accepted.
func (c *Contract) UnpackSent(log types.Log) (SentEvent, error) {
	if len(log.Topics) == 0 {
		return SentEvent{}, fmt.Errorf("missing topics")
	}
	if log.Topics[0] != c.sentID {
		return SentEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}
	if log.Address != c.address {
		return SentEvent{}, fmt.Errorf("log from %s, want %s", log.Address.Hex(), c.address.Hex())
	}

	event := c.abi.Events[EventSent]
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return SentEvent{}, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	topicValues := make(map[string]interface{}, len(indexed))
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(topicValues, indexed, log.Topics[1:]); err != nil {
			return SentEvent{}, fmt.Errorf("parse topics: %w", err)
		}
	}

	dataValues, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return SentEvent{}, fmt.Errorf("unpack %s: %w", event.Name, err)
	}

	values := make([]interface{}, 0, len(event.Inputs))
	next := 0
	for _, input := range event.Inputs {
		if input.Indexed {
			values = append(values, topicValues[input.Name])
			continue
		}
		if next >= len(dataValues) {
			return SentEvent{}, fmt.Errorf("unexpected %s values: %d", event.Name, len(dataValues))
		}
		values = append(values, dataValues[next])
		next++
	}

	from, err := asAddress(values[0])
	if err != nil {
		return SentEvent{}, fmt.Errorf("from: %w", err)
	}
	to, err := asAddress(values[1])
	if err != nil {
		return SentEvent{}, fmt.Errorf("to: %w", err)
	}
	amount, err := asBigInt(values[2])
	if err != nil {
		return SentEvent{}, fmt.Errorf("amount: %w", err)
	}

	return SentEvent{From: from, To: to, Amount: amount, Raw: log}, nil
}

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported uint type %T", value)
	}
}
