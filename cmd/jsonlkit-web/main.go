// Command jsonlkit-web serves the field editor API and the operation
// catalog over HTTP.
//
// Usage:
//
//	go run ./cmd/jsonlkit-web -addr :8080 -store sqlite:jsonlkit.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"jsonlkit/internal/config"
	"jsonlkit/internal/metrics/setup"
	"jsonlkit/internal/storage"
	_ "jsonlkit/internal/storage/all"
	"jsonlkit/internal/webui"
)

// server is the part of *webui.Server that run needs.
type server interface {
	ListenAndServe() error
}

// newServer is swapped out in tests.
var newServer = func(cfg webui.Config) server { return webui.NewServer(cfg) }

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	if err := run(os.Args[1:], logger); err != nil {
		logger.Fatal(err)
	}
}

func run(args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("jsonlkit-web", flag.ContinueOnError)
	fs.SetOutput(logger.Writer())
	addr := fs.String("addr", ":8080", "listen address")
	dsn := fs.String("store", "", "field configuration store DSN (env JSONLKIT_STORE_DSN)")
	origins := fs.String("origins", "", "comma-separated CORS origins")
	maxUpload := fs.Int64("max-upload", webui.DefaultMaxUploadBytes, "request body limit in bytes")
	job := fs.String("job", "jsonlkit-web", "job name for metrics")
	metricsBackend := fs.String("metrics-backend", "", "metrics backend: pushgateway|datadog|none (env METRICS_BACKEND)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r := config.Run{Store: config.Store{DSN: *dsn}, Metrics: config.Metrics{Backend: *metricsBackend}}
	r.ApplyEnv(os.Getenv)
	flush := setup.Install(r.Metrics, *job)
	defer flush()

	var st storage.Store
	if r.Store.DSN != "" {
		var err error
		if st, err = storage.Open(context.Background(), r.Store.DSN); err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	var allowed []string
	for _, o := range strings.Split(*origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}

	srv := newServer(webui.Config{
		Addr:           *addr,
		Store:          st,
		AllowedOrigins: allowed,
		MaxUploadBytes: *maxUpload,
		Job:            *job,
	})
	logger.Printf("listening on %s", *addr)
	return srv.ListenAndServe()
}
