package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"jsonlkit/internal/metrics"
	"jsonlkit/internal/parser/jsonl"
)

// DefaultManifestName is the manifest file name when Emitter.ManifestName
// is empty.
const DefaultManifestName = "manifest.json"

// Written describes one emitted file.
type Written struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
	// Bytes and XXH3 describe the file as stored, after compression.
	Bytes int `json:"bytes"`
	// RawBytes is the serialized size before compression.
	RawBytes int `json:"raw_bytes,omitempty"`
	// XXH3 is the 64-bit xxh3 digest of the content, as 16 hex digits.
	XXH3 string `json:"xxh3"`
}

// Manifest lists the files of one run.
type Manifest struct {
	RunID     uuid.UUID `json:"run_id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	// Compression names the codec applied to every file, if any.
	Compression string    `json:"compression,omitempty"`
	Files       []Written `json:"files"`
}

// Emitter serializes planned files and hands them to a Sink.
type Emitter struct {
	Sink Sink
	// Job labels metrics.
	Job string
	// Workers bounds concurrent writes. Zero means GOMAXPROCS.
	Workers int
	// Manifest, when set, also writes a manifest after every file.
	Manifest     bool
	ManifestName string
	// Codec, when set, compresses every data file and appends its extension
	// to the name. The manifest itself stays plain JSON.
	Codec Codec
}

// Emit writes files and returns what was written, in plan order. The first
// failure cancels the remaining writes.
func (e Emitter) Emit(ctx context.Context, runID uuid.UUID, source string, files []File) ([]Written, error) {
	start := time.Now()
	out, err := e.emit(ctx, files)
	if err == nil && e.Manifest {
		m := Manifest{RunID: runID, Source: source, CreatedAt: time.Now().UTC(), Files: out}
		if e.Codec != nil {
			m.Compression = e.Codec.Name()
		}
		err = e.writeManifest(ctx, m)
	}
	metrics.RecordStep(e.Job, "emit", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	rows := 0
	for _, w := range out {
		rows += w.Records
	}
	metrics.RecordFiles(e.Job, len(out))
	metrics.RecordRows(e.Job, "output", rows)
	return out, nil
}

func (e Emitter) emit(ctx context.Context, files []File) ([]Written, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Written, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			content, err := jsonl.Encode(f.Records)
			if err != nil {
				return fmt.Errorf("sink: encode %s: %w", f.Name, err)
			}
			name, raw := f.Name, 0
			if e.Codec != nil {
				raw = len(content)
				if content, err = e.Codec.Compress(content); err != nil {
					return fmt.Errorf("sink: %s %s: %w", e.Codec.Name(), f.Name, err)
				}
				name += e.Codec.Ext()
			}
			if err := e.Sink.Emit(gctx, name, content); err != nil {
				return err
			}
			out[i] = Written{
				Name:     name,
				Records:  len(f.Records),
				Bytes:    len(content),
				RawBytes: raw,
				XXH3:     Digest(content),
			}
			log.Printf("sink: wrote file=%s records=%d bytes=%d", name, len(f.Records), len(content))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e Emitter) writeManifest(ctx context.Context, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("sink: manifest: %w", err)
	}
	name := e.ManifestName
	if name == "" {
		name = DefaultManifestName
	}
	return e.Sink.Emit(ctx, name, b)
}

// Digest returns the xxh3 64-bit hash of b as 16 hex digits.
func Digest(b []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(b))
}
