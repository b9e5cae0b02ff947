package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"jsonlkit/internal/config"
	"jsonlkit/internal/datasource"
	"jsonlkit/internal/fieldconfig"
	"jsonlkit/internal/probe"
)

type fieldsOutput struct {
	FileID string              `json:"fileId"`
	Fields *probe.Catalog      `json:"fields"`
	Stats  probe.Stats         `json:"stats"`
	Saved  *fieldconfig.Config `json:"savedConfig,omitempty"`
}

// fieldsCmd infers the field catalog of one file and reports whether a
// saved configuration applies to it.
func fieldsCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("fields", stdout)
	in := fs.String("in", "", "input JSONL file or http(s) URL (required)")
	sample := fs.Int("sample", probe.DefaultSampleSize, "lines to sample")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	dsn := fs.String("store", "", "field configuration store DSN (env JSONLKIT_STORE_DSN)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}
	if *sample < 1 {
		return fmt.Errorf("-sample must be >= 1, got %d", *sample)
	}

	src := source(*in)
	text, err := datasource.ReadText(ctx, src)
	if err != nil {
		return err
	}
	cat, stats, err := probe.InferText(text, *sample)
	if err != nil {
		return err
	}
	log.Printf("probe: file=%s lines=%d sampled=%d failed=%d", src.Name(), stats.Lines, stats.Sampled, stats.Failed)

	id, err := datasource.Identify(ctx, src)
	if err != nil {
		return err
	}
	r := config.Run{Store: config.Store{DSN: *dsn}}
	r.ApplyEnv(os.Getenv)
	st, err := openStore(ctx, r.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	var saved *fieldconfig.Config
	if st != nil {
		defer st.Close()
		saved = fieldconfig.Saved(ctx, st, id, cat.Paths())
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(fieldsOutput{FileID: id, Fields: cat, Stats: stats, Saved: saved})
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tTYPE\tSAMPLE")
	for _, fi := range cat.Fields() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", fi.Path, fi.Type, fi.SampleValue)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "file id: %s\n", id)
	if saved != nil {
		renamed := 0
		for p, name := range saved.FieldMapping {
			if p != name {
				renamed++
			}
		}
		fmt.Fprintf(stdout, "saved configuration: %d deleted, %d renamed, %d added\n",
			len(saved.DeletedFields), renamed, len(saved.NewFields))
	}
	return nil
}
