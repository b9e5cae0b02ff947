// Command jsonlkit reshapes JSONL datasets from the command line.
//
// Usage:
//
//	jsonlkit run -config configs/sample.json
//	jsonlkit run -in data.jsonl -ops dateInsert,fileSplit,batchDownload -date 2025-01-01 -out out
//	jsonlkit fields -in data.jsonl [-json] [-store sqlite:jsonlkit.db]
//	jsonlkit validate -config configs/sample.json
//	jsonlkit configs -store sqlite:jsonlkit.db list|show ID|clear [ID...]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jsonlkit/internal/config"
	"jsonlkit/internal/storage"
	_ "jsonlkit/internal/storage/all"
)

// errInvalid is returned after validation issues have been printed.
var errInvalid = errors.New("invalid configuration")

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = runCmd(ctx, args, os.Stdout, os.Stderr)
	case "fields":
		err = fieldsCmd(ctx, args, os.Stdout)
	case "validate":
		err = validateCmd(args, os.Stdout, os.Stderr)
	case "configs":
		err = configsCmd(ctx, args, os.Stdout)
	case "help", "-h", "-help", "--help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "jsonlkit: unknown command %q\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		stop()
		fatalf("jsonlkit %s: %v", os.Args[1], err)
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: jsonlkit <command> [flags]

commands:
  run       apply operations to one or more JSONL files
  fields    infer the fields of a JSONL file
  validate  check a run file without running it
  configs   list, show or clear saved field configurations

run "jsonlkit <command> -h" for the flags of a command.
`)
}

func fatalf(format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(1)
}

// openStore opens the configured store. An empty DSN returns a nil store,
// which disables persistence.
func openStore(ctx context.Context, s config.Store) (storage.Store, error) {
	if s.DSN == "" {
		return nil, nil
	}
	cfg, err := storage.ParseDSN(s.DSN)
	if err != nil {
		return nil, err
	}
	if s.Table != "" {
		cfg.Table = s.Table
	}
	return storage.New(ctx, cfg)
}

func printIssues(w io.Writer, issues []config.Issue) {
	for _, iss := range issues {
		fmt.Fprintln(w, iss.Error())
	}
}

// validateCmd checks a run file and prints every issue found.
func validateCmd(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("validate", stderr)
	path := fs.String("config", "", "run file to check (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("-config is required")
	}
	r, err := config.Load(*path)
	if err != nil {
		return err
	}
	r.ApplyEnv(os.Getenv)
	issues := config.ValidateRun(r)
	printIssues(stderr, issues)
	if config.HasErrors(issues) {
		return errInvalid
	}
	fmt.Fprintf(stdout, "%s: ok (%d warnings)\n", *path, len(issues))
	return nil
}
