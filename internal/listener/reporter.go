package listener

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"coinwatch/internal/coin"
	"coinwatch/internal/model"
	"coinwatch/internal/observability"
	"coinwatch/internal/storage"
)

// BalanceReader reads a holder's coin balance at block (nil = latest).
type BalanceReader interface {
	Balances(ctx context.Context, holder common.Address, block *big.Int) (*big.Int, error)
}

// ReporterConfig wires a Reporter.
type ReporterConfig struct {
	Reader  BalanceReader
	Printer *Printer
	Sinks   []storage.Storage
	Metrics *observability.Metrics
	ChainID uint64
	// AtEventBlock reads balances as of the event's block instead of latest.
	AtEventBlock bool
}

// Reporter reads both balances for a Sent event and reports the transfer.
type Reporter struct {
	cfg ReporterConfig
	now func() time.Time
}

func NewReporter(cfg ReporterConfig) *Reporter {
	return &Reporter{cfg: cfg, now: time.Now}
}

// Handle implements Handler. Nothing is printed unless both balance reads succeed.
func (r *Reporter) Handle(ctx context.Context, ev coin.SentEvent) error {
	if r.cfg.Reader == nil {
		return fmt.Errorf("balance reader is nil")
	}

	var block *big.Int
	if r.cfg.AtEventBlock {
		block = new(big.Int).SetUint64(ev.Raw.BlockNumber)
	}

	var senderBalance, receiverBalance *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		senderBalance, err = r.balance(gctx, "sender", ev.From, block)
		return err
	})
	g.Go(func() error {
		var err error
		receiverBalance, err = r.balance(gctx, "receiver", ev.To, block)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if r.cfg.Printer != nil {
		msg := FormatTransfer(ev.From, ev.To, ev.Amount, senderBalance, receiverBalance)
		if err := r.cfg.Printer.Print(msg); err != nil {
			return fmt.Errorf("print transfer: %w", err)
		}
	}

	if len(r.cfg.Sinks) == 0 {
		return nil
	}
	record := r.buildRecord(ev, senderBalance, receiverBalance, block)
	for _, sink := range r.cfg.Sinks {
		if err := sink.PutTransfers(ctx, []model.TransferRecord{record}); err != nil {
			return fmt.Errorf("store transfer: %w", err)
		}
	}
	return nil
}

func (r *Reporter) balance(ctx context.Context, role string, holder common.Address, block *big.Int) (*big.Int, error) {
	start := time.Now()
	balance, err := r.cfg.Reader.Balances(ctx, holder, block)
	r.cfg.Metrics.ObserveBalanceCall(role, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s balance: %w", role, err)
	}
	return balance, nil
}

func (r *Reporter) buildRecord(ev coin.SentEvent, senderBalance, receiverBalance, block *big.Int) model.TransferRecord {
	record := model.TransferRecord{
		ChainID:         r.cfg.ChainID,
		BlockNumber:     ev.Raw.BlockNumber,
		BlockHash:       ev.Raw.BlockHash.Hex(),
		TxHash:          ev.Raw.TxHash.Hex(),
		LogIndex:        uint64(ev.Raw.Index),
		Contract:        ev.Raw.Address.Hex(),
		From:            ev.From.Hex(),
		To:              ev.To.Hex(),
		Amount:          decimal(ev.Amount),
		SenderBalance:   decimal(senderBalance),
		ReceiverBalance: decimal(receiverBalance),
		ObservedAt:      r.now().UTC().Format(time.RFC3339Nano),
	}
	if block != nil {
		record.BalancesAt = block.Uint64()
	}
	return record
}
