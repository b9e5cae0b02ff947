// Package datasource defines where raw JSONL text comes from and how it is
// read into memory.
//
// A run never streams: ReadText drains the source into one string before any
// parsing happens. Text is decoded through golang.org/x/text so that a UTF-8
// byte-order mark is dropped and UTF-16 files carrying a BOM are transcoded.
package datasource

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"jsonlkit/internal/errs"
)

// Source opens the raw dataset for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Described is implemented by sources that know their display name and byte
// size, which together identify a dataset for configuration persistence.
type Described interface {
	Source
	Name() string
	Size(ctx context.Context) (int64, error)
}

// FileIdentifier derives the persistence key of a dataset. Two different
// files with the same name and size share a key.
func FileIdentifier(name string, size int64) string {
	return name + "_" + strconv.FormatInt(size, 10)
}

// Identify returns FileIdentifier for a described source.
func Identify(ctx context.Context, src Described) (string, error) {
	size, err := src.Size(ctx)
	if err != nil {
		return "", err
	}
	return FileIdentifier(src.Name(), size), nil
}

// ReadText opens src and returns its full decoded content. Failures are
// reported as *errs.InputError.
func ReadText(ctx context.Context, src Source) (string, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return "", &errs.InputError{Op: "read", Err: err}
	}
	defer rc.Close()

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	var sb strings.Builder
	if _, err := io.Copy(&sb, transform.NewReader(ctxReader{ctx: ctx, r: rc}, dec)); err != nil {
		return "", &errs.InputError{Op: "read", Err: fmt.Errorf("file read failed: %w", err)}
	}
	return sb.String(), nil
}

// Base strips a trailing ".jsonl" from a file name for naming outputs.
func Base(name string) string {
	return strings.TrimSuffix(name, ".jsonl")
}

// ctxReader aborts a long read once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
