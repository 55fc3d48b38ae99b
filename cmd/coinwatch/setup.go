package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coinwatch/internal/chain"
	"coinwatch/internal/coin"
	"coinwatch/internal/config"
	"coinwatch/internal/storage"
	"coinwatch/internal/storage/postgres"
)

// session bundles the chain connection and bound contract shared by every command.
type session struct {
	client   *chain.Client
	contract *coin.Contract
	closers  []func()
}

func openSession(ctx context.Context, cfg config.Config) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	address, err := coin.ParseAddress(cfg.Address)
	if err != nil {
		return nil, err
	}

	parsed, err := coin.LoadABI(cfg.ABIPath)
	if err != nil {
		return nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, cfg.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	contract, err := coin.NewContract(address, parsed, client)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &session{client: client, contract: contract, closers: []func(){client.Close}}, nil
}

// sinks opens the optional transfer record stores.
func (s *session) sinks(ctx context.Context, cfg config.Config, logger *zap.Logger) ([]storage.Storage, error) {
	var out []storage.Storage
	if cfg.Out != "" {
		out = append(out, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("postgres sink enabled", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
		out = append(out, store)
	}
	return out, nil
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
