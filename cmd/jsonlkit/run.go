package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"jsonlkit/internal/config"
	"jsonlkit/internal/datasource"
	"jsonlkit/internal/datasource/file"
	"jsonlkit/internal/datasource/httpds"
	"jsonlkit/internal/fieldconfig"
	"jsonlkit/internal/metrics/setup"
	"jsonlkit/internal/parser/jsonl"
	"jsonlkit/internal/pipeline"
	"jsonlkit/internal/probe"
	"jsonlkit/internal/sink"
	"jsonlkit/internal/storage"
)

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// runFlags mirrors the run file. Only flags set on the command line
// override it.
type runFlags struct {
	config         string
	job            string
	in             string
	list           string
	ops            string
	date           string
	truncate       int
	split          int
	maxRowSize     float64
	maxPromptBytes int
	sampleSize     int
	out            string
	manifest       bool
	workers        int
	compress       string
	store          string
	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
	verbose        bool
}

func (f *runFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "run file (JSON); flags override its values")
	fs.StringVar(&f.job, "job", "", "job name for logs and metrics")
	fs.StringVar(&f.in, "in", "", "input JSONL file or http(s) URL")
	fs.StringVar(&f.list, "list", "", "file listing one JSONL path or URL per line")
	fs.StringVar(&f.ops, "ops", "", "comma-separated operations: "+strings.Join(config.KnownOperations, ","))
	fs.StringVar(&f.date, "date", "", "date for dateInsert (YYYY-MM-DD or YYYYMMDD)")
	fs.IntVar(&f.truncate, "truncate", 0, "prompt length for promptTruncate")
	fs.IntVar(&f.split, "split", 0, "records per part for fileSplit (default 100)")
	fs.Float64Var(&f.maxRowSize, "max-row-size", 0, "row size limit in MB for rowSizeFilter")
	fs.IntVar(&f.maxPromptBytes, "max-prompt-bytes", 0, "prompt size limit in bytes for promptLengthFilter (default 20480)")
	fs.IntVar(&f.sampleSize, "sample", 0, "lines sampled when binding a saved field configuration")
	fs.StringVar(&f.out, "out", "", "output directory for batchDownload")
	fs.BoolVar(&f.manifest, "manifest", false, "write a manifest with per-file digests")
	fs.IntVar(&f.workers, "workers", 0, "parallel file writes (0 = GOMAXPROCS)")
	fs.StringVar(&f.compress, "compress", "", "compress output files: "+strings.Join(config.OutputCodecs, "|")+"|none")
	fs.StringVar(&f.store, "store", "", "field configuration store DSN (env JSONLKIT_STORE_DSN)")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway|datadog|none (env METRICS_BACKEND)")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway URL (env PUSHGATEWAY_URL)")
	fs.StringVar(&f.datadogAddr, "datadog-addr", "", "DogStatsD address (env DD_AGENT_ADDR)")
	fs.BoolVar(&f.verbose, "v", false, "log pipeline progress")
}

// apply copies every flag that was set on the command line into r.
func (f *runFlags) apply(fs *flag.FlagSet, r *config.Run) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "job":
			r.Job = f.job
		case "in":
			r.Input = config.Input{Path: f.in}
		case "list":
			r.Input = config.Input{List: f.list}
		case "ops":
			r.Operations = splitList(f.ops)
		case "date":
			r.Options[config.OptDate] = f.date
		case "truncate":
			r.Options[config.OptTruncateLength] = f.truncate
		case "split":
			r.Options[config.OptSplitCount] = f.split
		case "max-row-size":
			r.Options[config.OptMaxRowSize] = f.maxRowSize
		case "max-prompt-bytes":
			r.Options[config.OptMaxPromptBytes] = f.maxPromptBytes
		case "sample":
			r.Options[config.OptSampleSize] = f.sampleSize
		case "out":
			r.Output.Dir = f.out
		case "manifest":
			r.Output.Manifest = f.manifest
		case "workers":
			r.Output.Workers = f.workers
		case "compress":
			r.Output.Compress = f.compress
		case "store":
			r.Store.DSN = f.store
		case "metrics-backend":
			r.Metrics.Backend = f.metricsBackend
		case "pushgateway-url":
			r.Metrics.PushgatewayURL = f.pushgatewayURL
		case "datadog-addr":
			r.Metrics.DatadogAddr = f.datadogAddr
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadRun builds the effective run: run file, then flags, then environment.
func loadRun(args []string, stderr io.Writer) (config.Run, bool, error) {
	fs := newFlagSet("run", stderr)
	var f runFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return config.Run{}, false, err
	}
	r := config.Run{Options: config.Options{}}
	if f.config != "" {
		var err error
		if r, err = config.Load(f.config); err != nil {
			return config.Run{}, false, err
		}
	}
	f.apply(fs, &r)
	r.ApplyEnv(os.Getenv)
	return r, f.verbose, nil
}

// runCmd processes every input of the run and prints one summary per input.
// Inputs are processed in order; the first failure stops the run.
func runCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	r, verbose, err := loadRun(args, stderr)
	if err != nil {
		return err
	}
	issues := config.ValidateRun(r)
	printIssues(stderr, issues)
	if config.HasErrors(issues) {
		return errInvalid
	}

	job := r.Job
	if job == "" {
		job = "jsonlkit"
	}
	flush := setup.Install(r.Metrics, job)
	defer flush()

	st, err := openStore(ctx, r.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if st != nil {
		defer st.Close()
	}

	sources, err := inputs(ctx, r.Input)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("input list is empty")
	}
	for i, entry := range sources {
		sum, err := processOne(ctx, r, st, source(entry), verbose)
		if err != nil {
			return fmt.Errorf("%s: %w", entry, err)
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprint(stdout, sum.String())
	}
	return nil
}

func inputs(ctx context.Context, in config.Input) ([]string, error) {
	if in.List != "" {
		return file.ReadInputList(ctx, in.List)
	}
	return []string{in.Path}, nil
}

// source opens entry as a remote dataset when it is an http(s) URL and as a
// local file otherwise.
func source(entry string) datasource.Described {
	if file.IsURL(entry) {
		return httpds.NewRemote(httpClient, entry)
	}
	return file.NewLocal(entry)
}

var httpClient = httpds.NewClient(httpds.Config{MaxRetries: 3})

func processOne(ctx context.Context, r config.Run, st storage.Store, src datasource.Described, verbose bool) (pipeline.Summary, error) {
	text, err := datasource.ReadText(ctx, src)
	if err != nil {
		return pipeline.Summary{}, err
	}
	recs, err := jsonl.DecodeAll(text)
	if err != nil {
		return pipeline.Summary{}, err
	}

	ops, opt := pipeline.FromRun(r)
	if opt.FieldConfig == nil && st != nil {
		opt.FieldConfig = savedFields(ctx, st, src, text, r.Options.Int(config.OptSampleSize, probe.DefaultSampleSize))
	}
	if verbose {
		opt.Progress = func(msg string) { log.Printf("jsonlkit: %s file=%s", msg, src.Name()) }
	}

	res, err := pipeline.Run(ctx, recs, ops, opt)
	if err != nil {
		return pipeline.Summary{}, err
	}
	base := datasource.Base(src.Name())
	plan := sink.Plan(base, res)

	if ops.Has(config.OpBatchDownload) {
		dir := r.Output.Dir
		if dir == "" {
			dir = "."
		}
		codec, err := sink.CodecFor(r.Output.Compress)
		if err != nil {
			return pipeline.Summary{}, err
		}
		d, err := sink.NewDir(dir)
		if err != nil {
			return pipeline.Summary{}, err
		}
		e := sink.Emitter{
			Sink:         d,
			Job:          opt.Job,
			Workers:      r.Output.Workers,
			Manifest:     r.Output.Manifest,
			ManifestName: base + "_" + sink.DefaultManifestName,
			Codec:        codec,
		}
		written, err := e.Emit(ctx, res.RunID, src.Name(), plan)
		if err != nil {
			return pipeline.Summary{}, err
		}
		if verbose {
			for _, w := range written {
				log.Printf("jsonlkit: wrote file=%s records=%d bytes=%d", w.Name, w.Records, w.Bytes)
			}
		}
	}
	return pipeline.Summarize(src.Name(), res, ops, opt, len(plan)), nil
}

// savedFields binds the configuration saved for src, if any, to the fields
// inferred from its leading lines. Inference failures disable the saved
// configuration instead of failing the run.
func savedFields(ctx context.Context, st storage.Store, src datasource.Described, text string, sample int) *fieldconfig.Config {
	cat, _, err := probe.InferText(text, sample)
	if err != nil {
		log.Printf("jsonlkit: skipping saved fields file=%s err=%v", src.Name(), err)
		return nil
	}
	id, err := datasource.Identify(ctx, src)
	if err != nil {
		log.Printf("jsonlkit: skipping saved fields file=%s err=%v", src.Name(), err)
		return nil
	}
	return fieldconfig.Saved(ctx, st, id, cat.Paths())
}
