package core

import (
	"context"
	"fmt"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/config"
	"pathwaycore/internal/infra/persistence/badger"
	"pathwaycore/internal/infra/persistence/blobstore"
	"pathwaycore/internal/infra/persistence/memory"
	"pathwaycore/internal/infra/persistence/postgres"
	"pathwaycore/internal/infra/persistence/sqlite"
	"pathwaycore/internal/logging"
	"pathwaycore/internal/result"
)

// OpenResultStore opens the result repository selected by cfg.Results.Driver.
// The blob driver opens the blob store described by cfg.Blob.
func OpenResultStore(ctx context.Context, cfg config.Config, logger logging.Logger) (result.Repository, error) {
	switch cfg.Results.Driver {
	case config.ResultsMemory:
		return memory.NewStore(), nil
	case config.ResultsSQLite, "":
		return opened(sqlite.NewStore(cfg.Results.SQLitePath))
	case config.ResultsPostgres:
		return opened(postgres.NewStore(ctx, cfg.Results.PostgresDSN))
	case config.ResultsBadger:
		return opened(badger.Open(badger.Config{Path: cfg.Results.BadgerPath, SyncWrites: true, Logger: logger}))
	case config.ResultsBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open result blob store: %w", err)
		}
		return blobstore.NewOwned(blobs), nil
	default:
		return nil, fmt.Errorf("unknown results driver %s", cfg.Results.Driver)
	}
}

// opened keeps a failed constructor from yielding a non-nil interface around a nil store.
func opened[R result.Repository](r R, err error) (result.Repository, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}
