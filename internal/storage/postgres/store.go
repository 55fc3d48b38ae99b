package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coinwatch/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS coin_transfers (
	chain_id         BIGINT      NOT NULL,
	tx_hash          TEXT        NOT NULL,
	log_index        BIGINT      NOT NULL,
	block_number     BIGINT      NOT NULL,
	block_hash       TEXT        NOT NULL,
	contract         TEXT        NOT NULL,
	sender           TEXT        NOT NULL,
	receiver         TEXT        NOT NULL,
	amount           NUMERIC(78, 0) NOT NULL,
	sender_balance   NUMERIC(78, 0) NOT NULL,
	receiver_balance NUMERIC(78, 0) NOT NULL,
	balances_at      BIGINT,
	observed_at      TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, tx_hash, log_index)
)`

// Store persists transfer records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the coin_transfers table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create coin_transfers: %w", err)
	}
	return nil
}

// PutTransfers inserts records; a record already stored for the same log is kept.
func (s *Store) PutTransfers(ctx context.Context, records []model.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		var balancesAt *int64
		if r.BalancesAt > 0 {
			v := int64(r.BalancesAt)
			balancesAt = &v
		}
		batch.Queue(`
			INSERT INTO coin_transfers (
				chain_id, tx_hash, log_index, block_number, block_hash, contract,
				sender, receiver, amount, sender_balance, receiver_balance, balances_at, observed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::numeric,$10::numeric,$11::numeric,$12,$13::timestamptz)
			ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		`,
			int64(r.ChainID),
			r.TxHash,
			int64(r.LogIndex),
			int64(r.BlockNumber),
			r.BlockHash,
			r.Contract,
			r.From,
			r.To,
			r.Amount,
			r.SenderBalance,
			r.ReceiverBalance,
			balancesAt,
			r.ObservedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
