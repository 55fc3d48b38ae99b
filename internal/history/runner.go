// Package history replays past Sent events over a block range.
package history

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coinwatch/internal/coin"
	"coinwatch/internal/listener"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	Contract  string
	FromBlock uint64
	ToBlock   uint64
	BatchSize uint64
	// CheckpointPath enables resumable replays when set.
	CheckpointPath string
}

// EventSource returns decoded Sent events in an inclusive block range.
type EventSource interface {
	FilterSent(ctx context.Context, fromBlock, toBlock uint64) ([]coin.SentEvent, error)
}

// HeadReader resolves the latest block number.
type HeadReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Runner walks a block range and hands every Sent event to a handler in order.
type Runner struct {
	cfg        RunConfig
	source     EventSource
	head       HeadReader
	handler    listener.Handler
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source EventSource, head HeadReader, handler listener.Handler, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		head:       head,
		handler:    handler,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.Contract),
	}
}

// Run replays the configured range. The first failing batch or handler ends the run.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("event source is nil")
	}
	if r.handler == nil {
		return fmt.Errorf("handler is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		if r.head == nil {
			return fmt.Errorf("head reader is nil")
		}
		latest, err := r.head.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}

	if from > to {
		r.logger.Info("nothing to replay", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	var total int
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Debug("fetch sent events", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		events, err := r.source.FilterSent(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return fmt.Errorf("filter sent %d-%d: %w", blockRange.From, blockRange.To, err)
		}

		for _, ev := range events {
			if err := r.handler(ctx, ev); err != nil {
				return fmt.Errorf("report %s:%d: %w", ev.Raw.TxHash.Hex(), ev.Raw.Index, err)
			}
		}

		if err := r.checkpoint.Save(blockRange.To); err != nil {
			return err
		}

		total += len(events)
		r.logger.Info("batch complete", zap.Int("events", len(events)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	r.logger.Info("replay complete", zap.Int("events", total), zap.Uint64("from", from), zap.Uint64("to", to))
	return nil
}
