package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"jsonlkit/internal/config"
	"jsonlkit/internal/datasource"
	"jsonlkit/internal/errs"
	"jsonlkit/internal/fieldconfig"
	"jsonlkit/internal/parser/jsonl"
	"jsonlkit/internal/pipeline"
	"jsonlkit/internal/probe"
	"jsonlkit/internal/sink"
)

type fieldsResponse struct {
	FileID   string              `json:"file_id"`
	Fields   *probe.Catalog      `json:"fields"`
	Stats    probe.Stats         `json:"stats"`
	Config   *fieldconfig.Config `json:"config"`
	Restored bool                `json:"restored"`
}

// handleFields infers the field catalog of the uploaded JSONL and binds the
// dataset's saved configuration, if any.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, &errs.ConfigError{Field: "name", Err: errs.ErrInvalidConfig})
		return
	}
	sample := probe.DefaultSampleSize
	if v := r.URL.Query().Get("sample"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, &errs.ConfigError{Field: "sample", Err: errs.ErrInvalidConfig})
			return
		}
		sample = n
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	src := datasource.FromBytes(name, body)
	text, err := datasource.ReadText(r.Context(), src)
	if err != nil {
		writeError(w, err)
		return
	}
	cat, st, err := probe.InferText(text, sample)
	if err != nil {
		writeError(w, err)
		return
	}

	fileID, _ := datasource.Identify(r.Context(), src)
	m := fieldconfig.NewManager(s.cfg.Store)
	restored := m.Select(r.Context(), fileID, cat.Paths())
	writeJSON(w, http.StatusOK, fieldsResponse{
		FileID:   fileID,
		Fields:   cat,
		Stats:    st,
		Config:   m.Snapshot(),
		Restored: restored,
	})
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	ids := fieldconfig.NewManager(s.cfg.Store).SavedIDs(r.Context())
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	n := fieldconfig.NewManager(s.cfg.Store).ClearAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	m := fieldconfig.NewManager(s.cfg.Store)
	if !m.Load(r.Context(), fileID) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no saved configuration for " + fileID, Kind: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	var cfg fieldconfig.Config
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, &errs.ConfigError{Field: "body", Err: fmt.Errorf("%w: %v", errs.ErrInvalidConfig, err)})
		return
	}
	m := fieldconfig.NewManager(s.cfg.Store)
	m.Select(r.Context(), fileID, cfg.OriginalFields)
	if err := m.Replace(&cfg); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	fieldconfig.NewManager(s.cfg.Store).Clear(chi.URLParam(r, "fileID"))
	w.WriteHeader(http.StatusNoContent)
}

// runRequest carries a whole dataset and its run parameters.
type runRequest struct {
	Name       string              `json:"name"`
	Content    string              `json:"content"`
	Operations []string            `json:"operations"`
	Options    config.Options      `json:"options"`
	Fields     *fieldconfig.Config `json:"fields,omitempty"`
}

type outputFile struct {
	sink.Written
	Content string `json:"content"`
}

type runResponse struct {
	Summary  pipeline.Summary `json:"summary"`
	Files    []outputFile     `json:"files"`
	Progress []string         `json:"progress"`
}

// handleRun processes one dataset. Without a fields override the saved
// configuration of the dataset is applied when it has changes. Files are
// returned inline only when batchDownload is selected.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, &errs.ConfigError{Field: "body", Err: fmt.Errorf("%w: %v", errs.ErrInvalidConfig, err)})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, &errs.ConfigError{Field: "name", Err: errs.ErrInvalidConfig})
		return
	}
	if req.Options == nil {
		req.Options = config.Options{}
	}
	for _, op := range req.Operations {
		if _, ok := pipeline.Lookup(op); !ok {
			writeError(w, &config.ParamError{Param: "operations", Message: fmt.Sprintf("unknown operation %q", op)})
			return
		}
	}

	src := datasource.FromBytes(req.Name, []byte(req.Content))
	text, err := datasource.ReadText(r.Context(), src)
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := jsonl.DecodeAll(text)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Fields == nil {
		fileID, _ := datasource.Identify(r.Context(), src)
		req.Fields = s.savedConfig(r.Context(), fileID, text)
	}

	run := config.Run{Job: s.cfg.Job, Operations: req.Operations, Options: req.Options, Fields: req.Fields}
	ops, opt := pipeline.FromRun(run)
	var progress []string
	opt.Progress = func(msg string) { progress = append(progress, msg) }

	res, err := pipeline.Run(r.Context(), recs, ops, opt)
	if err != nil {
		writeError(w, err)
		return
	}
	plan := sink.Plan(datasource.Base(req.Name), res)
	resp := runResponse{
		Summary:  pipeline.Summarize(req.Name, res, ops, opt, len(plan)),
		Files:    []outputFile{},
		Progress: progress,
	}
	if ops.Has(config.OpBatchDownload) {
		mem := sink.NewMemory()
		written, err := sink.Emitter{Sink: mem, Job: s.cfg.Job}.Emit(r.Context(), res.RunID, req.Name, plan)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, wr := range written {
			b, _ := mem.Get(wr.Name)
			resp.Files = append(resp.Files, outputFile{Written: wr, Content: string(b)})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// savedConfig returns the dataset's saved configuration when it differs
// from identity, or nil.
func (s *Server) savedConfig(ctx context.Context, fileID, text string) *fieldconfig.Config {
	if s.cfg.Store == nil {
		return nil
	}
	cat, _, err := probe.InferText(text, probe.DefaultSampleSize)
	if err != nil {
		return nil
	}
	return fieldconfig.Saved(ctx, s.cfg.Store, fileID, cat.Paths())
}
