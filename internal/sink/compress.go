package sink

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec compresses a whole output file. Every codec writes its standard
// framed format, so outputs open with the usual command-line tools.
type Codec interface {
	// Name is the value accepted by CodecFor.
	Name() string
	// Ext is appended to the output file name.
	Ext() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// Codecs lists the names CodecFor accepts, besides "" and "none".
var Codecs = []string{"gzip", "zstd", "s2", "lz4"}

// CodecFor returns the codec registered under name. "" and "none" return nil,
// which leaves output uncompressed.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "gzip":
		return gzipCodec{}, nil
	case "zstd":
		return zstdCodec{}, nil
	case "s2":
		return s2Codec{}, nil
	case "lz4":
		return lz4Codec{}, nil
	}
	return nil, fmt.Errorf("sink: unknown codec %q", name)
}

type gzipCodec struct{}

func (gzipCodec) Name() string { return "gzip" }
func (gzipCodec) Ext() string  { return ".gz" }

func (gzipCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	return finish(&buf, w, data)
}

func (gzipCodec) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sink: gzip: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

var (
	zstdEncoders = sync.Pool{New: func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(fmt.Sprintf("sink: zstd encoder: %v", err))
		}
		return enc
	}}
	zstdDecoders = sync.Pool{New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("sink: zstd decoder: %v", err))
		}
		return dec
	}}
)

type zstdCodec struct{}

func (zstdCodec) Name() string { return "zstd" }
func (zstdCodec) Ext() string  { return ".zst" }

// EncodeAll and DecodeAll are stateless, so pooled coders are safe to share
// across emitter workers.
func (zstdCodec) Compress(data []byte) ([]byte, error) {
	enc := zstdEncoders.Get().(*zstd.Encoder)
	defer zstdEncoders.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

func (zstdCodec) Decompress(data []byte) ([]byte, error) {
	dec := zstdDecoders.Get().(*zstd.Decoder)
	defer zstdDecoders.Put(dec)
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("sink: zstd: %w", err)
	}
	return out, nil
}

// s2Codec writes the s2 stream format rather than a bare block.
type s2Codec struct{}

func (s2Codec) Name() string { return "s2" }
func (s2Codec) Ext() string  { return ".s2" }

func (s2Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := s2.NewWriter(&buf, s2.WriterConcurrency(1))
	return finish(&buf, w, data)
}

func (s2Codec) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(s2.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("sink: s2: %w", err)
	}
	return out, nil
}

// lz4Codec writes the lz4 frame format.
type lz4Codec struct{}

func (lz4Codec) Name() string { return "lz4" }
func (lz4Codec) Ext() string  { return ".lz4" }

func (lz4Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	return finish(&buf, w, data)
}

func (lz4Codec) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("sink: lz4: %w", err)
	}
	return out, nil
}

func finish(buf *bytes.Buffer, w io.WriteCloser, data []byte) ([]byte, error) {
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("sink: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("sink: compress: %w", err)
	}
	return buf.Bytes(), nil
}
