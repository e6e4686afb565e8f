package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"formcraft/internal/config"
	"formcraft/internal/storage"
)

// OpenBlobStore builds the blob store selected by cfg.Storage.Driver. The
// returned close function is never nil.
func OpenBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, func(), error) {
	noop := func() {}

	switch driver := cfg.Storage.Driver; driver {
	case "memory":
		return storage.NewMemoryStorage(), noop, nil
	case "local":
		return storage.NewLocalStorage(cfg.Storage.LocalPath), noop, nil
	case "sqlite", "postgres":
		s, err := New(ctx, driver, cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("connect %s: %w", driver, err)
		}
		if err := s.Bootstrap(ctx); err != nil {
			s.Close()
			return nil, noop, err
		}
		log.Info().Str("driver", driver).Msg("blob store connected")
		return NewSQLBlobStore(s), func() { s.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", driver)
	}
}
