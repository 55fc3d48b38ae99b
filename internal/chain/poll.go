package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// LogSource is the subset of ethclient needed to emulate a log subscription.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// PollFilterLogs emulates eth_subscribe("logs") by calling eth_getLogs for
// every new block range. Polling starts after the current head unless the
// query carries a FromBlock. Logs are delivered in the order the node returns
// them. A failed poll ends the subscription with that error.
func PollFilterLogs(ctx context.Context, src LogSource, query ethereum.FilterQuery, interval time.Duration, sink chan<- types.Log) (ethereum.Subscription, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	next, err := pollStart(ctx, src, query)
	if err != nil {
		return nil, err
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			head, err := src.BlockNumber(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("poll head: %w", err)
			}
			if head < next {
				continue
			}

			q := query
			q.FromBlock = new(big.Int).SetUint64(next)
			q.ToBlock = new(big.Int).SetUint64(head)
			logs, err := src.FilterLogs(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("poll logs %d-%d: %w", next, head, err)
			}

			for _, log := range logs {
				select {
				case sink <- log:
				case <-quit:
					return nil
				case <-ctx.Done():
					return nil
				}
			}
			next = head + 1
		}
	}), nil
}

func pollStart(ctx context.Context, src LogSource, query ethereum.FilterQuery) (uint64, error) {
	if query.FromBlock != nil && query.FromBlock.Sign() >= 0 {
		return query.FromBlock.Uint64(), nil
	}
	head, err := src.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	return head + 1, nil
}
