package mysql

import (
	"context"

	"jsonlkit/internal/storage"
)

// open is a test hook that points to Open by default.
var open = Open

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		s, err := open(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
