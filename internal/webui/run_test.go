package webui

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"jsonlkit/internal/fieldconfig"
	"jsonlkit/internal/storage"
)

type runResult struct {
	Summary struct {
		TotalLines int `json:"total_lines"`
		Files      int `json:"files"`
		Retained   int `json:"retained"`
		Filtered   int `json:"filtered"`
	} `json:"summary"`
	Files []struct {
		Name    string `json:"name"`
		Records int    `json:"records"`
		XXH3    string `json:"xxh3"`
		Content string `json:"content"`
	} `json:"files"`
	Progress []string `json:"progress"`
}

func postRun(t *testing.T, url string, req map[string]any) *http.Response {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, http.MethodPost, url+"/api/run", body)
}

func TestRun_FilesInline(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	resp := postRun(t, srv.URL, map[string]any{
		"name":       "data.jsonl",
		"content":    sample,
		"operations": []string{"dateInsert", "promptLengthFilter", "batchDownload"},
		"options":    map[string]any{"date": "2025-01-01", "max_prompt_bytes": 8},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	got := decode[runResult](t, resp)
	if got.Summary.TotalLines != 2 || got.Summary.Retained != 1 || got.Summary.Filtered != 1 || got.Summary.Files != 2 {
		t.Fatalf("summary=%+v", got.Summary)
	}
	if len(got.Files) != 2 || got.Files[0].Name != "data_retained.jsonl" || got.Files[1].Name != "data_filtered.jsonl" {
		t.Fatalf("files=%+v", got.Files)
	}
	if got.Files[0].Content != `{"internal_id":"abc_20250101_2","prompt":"second"}` {
		t.Fatalf("retained content=%s", got.Files[0].Content)
	}
	if !strings.Contains(got.Files[1].Content, `"internal_id":"abc_1"`) {
		t.Fatalf("filtered content must not be date stamped: %s", got.Files[1].Content)
	}
	if len(got.Progress) == 0 {
		t.Fatalf("no progress messages")
	}
}

// TestRun_WithoutBatchDownload reports the plan but returns no files.
func TestRun_WithoutBatchDownload(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	got := decode[runResult](t, postRun(t, srv.URL, map[string]any{
		"name":       "data.jsonl",
		"content":    sample,
		"operations": []string{"fileSplit"},
		"options":    map[string]any{"split_count": 1},
	}))
	if got.Summary.Files != 2 || len(got.Files) != 0 {
		t.Fatalf("summary files=%d inline=%d; want 2/0", got.Summary.Files, len(got.Files))
	}
}

func TestRun_AppliesSavedConfig(t *testing.T) {
	t.Parallel()

	st := storage.NewMemory()
	srv := newTestServer(t, st)

	fr := decode[struct {
		FileID string              `json:"file_id"`
		Config *fieldconfig.Config `json:"config"`
	}](t, do(t, http.MethodPost, srv.URL+"/api/fields?name=data.jsonl", []byte(sample)))
	cfg := fr.Config
	cfg.FieldOrder = []string{"prompt", "internal_id"}
	cfg.DeletedFields = []string{"meta", "meta.lang"}
	body, _ := json.Marshal(cfg)
	do(t, http.MethodPut, srv.URL+"/api/config/"+fr.FileID, body)

	got := decode[runResult](t, postRun(t, srv.URL, map[string]any{
		"name":       "data.jsonl",
		"content":    sample,
		"operations": []string{"batchDownload"},
	}))
	want := `{"prompt":"hello world","internal_id":"abc_1"}` + "\n" + `{"prompt":"second","internal_id":"abc_2"}`
	if len(got.Files) != 1 || got.Files[0].Content != want {
		t.Fatalf("files=%+v", got.Files)
	}
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	cases := []struct {
		name   string
		req    map[string]any
		status int
		kind   string
	}{
		{"missing name", map[string]any{"content": sample}, http.StatusBadRequest, "config"},
		{"unknown op", map[string]any{"name": "d.jsonl", "content": sample, "operations": []string{"shuffle"}}, http.StatusBadRequest, "config"},
		{"missing date", map[string]any{"name": "d.jsonl", "content": sample, "operations": []string{"dateInsert"}}, http.StatusBadRequest, "config"},
		{"bad line", map[string]any{"name": "d.jsonl", "content": "{\"a\":1}\n{oops"}, http.StatusUnprocessableEntity, "input"},
		{"empty", map[string]any{"name": "d.jsonl", "content": " \n"}, http.StatusUnprocessableEntity, "input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postRun(t, srv.URL, tc.req)
			if resp.StatusCode != tc.status {
				t.Fatalf("status=%d; want %d", resp.StatusCode, tc.status)
			}
			if e := decode[errorBody](t, resp); e.Kind != tc.kind {
				t.Fatalf("kind=%s; want %s (%s)", e.Kind, tc.kind, e.Error)
			}
		})
	}
}
