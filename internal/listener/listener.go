// Package listener subscribes to the Coin contract's Sent event and runs a
// handler for every occurrence.
package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"coinwatch/internal/coin"
	"coinwatch/internal/observability"
)

// State is the subscription state of a Listener.
type State int

const (
	Unsubscribed State = iota
	Subscribed
)

func (s State) String() string {
	switch s {
	case Unsubscribed:
		return "unsubscribed"
	case Subscribed:
		return "subscribed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const logBuffer = 64

var (
	ErrAlreadySubscribed = errors.New("listener already subscribed")
	ErrUnsupportedEvent  = errors.New("unsupported event")
)

// Handler processes one Sent event. Invocations may run concurrently.
type Handler func(ctx context.Context, ev coin.SentEvent) error

// Source delivers and decodes Sent logs. *coin.Contract implements it.
type Source interface {
	WatchSent(ctx context.Context, sink chan<- types.Log) (ethereum.Subscription, error)
	UnpackSent(log types.Log) (coin.SentEvent, error)
}

// Listener owns one long-lived Sent subscription.
type Listener struct {
	source  Source
	logger  *zap.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	state State
	done  chan struct{}
	err   error

	handlers sync.WaitGroup
}

// New builds a Listener in the Unsubscribed state.
func New(source Source, logger *zap.Logger, metrics *observability.Metrics) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// State returns the current subscription state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Subscribe registers handler for eventName and starts delivery. It may be
// called once; the subscription lasts until ctx is cancelled or the provider
// ends it.
func (l *Listener) Subscribe(ctx context.Context, eventName string, handler Handler) error {
	if eventName != coin.EventSent {
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, eventName)
	}
	if handler == nil {
		return fmt.Errorf("handler is nil")
	}
	if l.source == nil {
		return fmt.Errorf("event source is nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Subscribed {
		return ErrAlreadySubscribed
	}

	logs := make(chan types.Log, logBuffer)
	sub, err := l.source.WatchSent(ctx, logs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", eventName, err)
	}

	l.state = Subscribed
	l.done = make(chan struct{})
	go l.loop(ctx, sub, logs, handler)

	return nil
}

// Wait blocks until the subscription ends and every running handler has
// returned. It returns the provider's subscription error, if any.
func (l *Listener) Wait() error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return nil
	}

	<-done
	l.handlers.Wait()
	return l.err
}

func (l *Listener) loop(ctx context.Context, sub ethereum.Subscription, logs <-chan types.Log, handler Handler) {
	defer close(l.done)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("subscription closed", zap.Error(ctx.Err()))
			return
		case err, ok := <-sub.Err():
			if ok && err != nil {
				l.err = fmt.Errorf("subscription: %w", err)
			}
			return
		case log := <-logs:
			l.dispatch(ctx, log, handler)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, log types.Log, handler Handler) {
	if log.Removed {
		l.logger.Debug("skip removed log", zap.String("tx_hash", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
		return
	}

	ev, err := l.source.UnpackSent(log)
	if err != nil {
		l.logger.Warn("decode sent log", zap.Error(err), zap.String("tx_hash", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
		l.metrics.HandlerFailed("decode")
		return
	}

	l.metrics.EventReceived()
	l.handlers.Add(1)
	go func() {
		defer l.handlers.Done()
		l.metrics.HandlerStarted()
		defer l.metrics.HandlerFinished()

		if err := handler(ctx, ev); err != nil {
			l.logger.Warn("sent handler failed",
				zap.Error(err),
				zap.Uint64("block_number", log.BlockNumber),
				zap.String("tx_hash", log.TxHash.Hex()),
				zap.Uint("log_index", log.Index),
			)
			l.metrics.HandlerFailed("handle")
		}
	}()
}
