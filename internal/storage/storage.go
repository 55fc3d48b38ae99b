package storage

import (
	"context"

	"coinwatch/internal/model"
)

// Storage defines a sink for transfer records.
type Storage interface {
	PutTransfers(ctx context.Context, records []model.TransferRecord) error
}
