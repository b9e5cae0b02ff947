package datasource

import (
	"bytes"
	"context"
	"io"
)

// Bytes is an in-memory dataset, used for uploads.
type Bytes struct {
	name string
	data []byte
}

// FromBytes wraps data under a display name. data is not copied.
func FromBytes(name string, data []byte) *Bytes {
	return &Bytes{name: name, data: data}
}

func (b *Bytes) Name() string { return b.name }

func (b *Bytes) Size(context.Context) (int64, error) { return int64(len(b.data)), nil }

func (b *Bytes) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}
