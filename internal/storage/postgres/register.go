package postgres

import (
	"context"

	"jsonlkit/internal/storage"
)

// open is a test hook that points to Open by default. Tests may replace it
// to avoid a real database.
var open = Open

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		s, err := open(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
