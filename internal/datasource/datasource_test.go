package datasource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"jsonlkit/internal/errs"
)

type memSource struct {
	data []byte
	err  error
}

func (m memSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func TestReadText_Encodings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain_utf8", []byte("{\"a\":\"é\"}\n"), "{\"a\":\"é\"}\n"},
		{"utf8_bom_stripped", append([]byte{0xEF, 0xBB, 0xBF}, []byte("{\"a\":1}")...), "{\"a\":1}"},
		{"utf16le_bom_transcoded", []byte{0xFF, 0xFE, '{', 0, '}', 0}, "{}"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadText(context.Background(), memSource{data: tc.in})
			if err != nil {
				t.Fatalf("ReadText: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ReadText=%q; want %q", got, tc.want)
			}
		})
	}
}

func TestReadText_OpenFailureIsInputError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := ReadText(context.Background(), memSource{err: boom})
	var ie *errs.InputError
	if !errors.As(err, &ie) || !errors.Is(err, boom) {
		t.Fatalf("err=%v; want *errs.InputError wrapping boom", err)
	}
}

func TestFileIdentifierAndBase(t *testing.T) {
	t.Parallel()

	if got := FileIdentifier("data.jsonl", 1024); got != "data.jsonl_1024" {
		t.Fatalf("FileIdentifier=%q", got)
	}
	if got := Base("data.jsonl"); got != "data" {
		t.Fatalf("Base=%q", got)
	}
	if got := Base("data.json"); got != "data.json" {
		t.Fatalf("Base=%q", got)
	}
}

func TestBytes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := FromBytes("up.jsonl", []byte("\xEF\xBB\xBF{\"a\":1}"))
	id, err := Identify(ctx, src)
	if err != nil || id != "up.jsonl_10" {
		t.Fatalf("Identify=%q, %v; want up.jsonl_10", id, err)
	}
	text, err := ReadText(ctx, src)
	if err != nil || text != `{"a":1}` {
		t.Fatalf("ReadText=%q, %v", text, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := ReadText(cctx, src); !errs.IsInput(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled read err=%v", err)
	}
}
