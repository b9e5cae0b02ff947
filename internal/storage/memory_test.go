package storage_test

import (
	"testing"

	"jsonlkit/internal/storage"
	"jsonlkit/internal/storage/storagetest"
)

func TestMemory_Contract(t *testing.T) {
	t.Parallel()
	storagetest.Run(t, storage.NewMemory())
}
