package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"jsonlkit/internal/config"
	"jsonlkit/internal/fieldconfig"
	"jsonlkit/internal/storage"
)

// configsCmd manages saved field configurations:
//
//	list           print every dataset id with a saved configuration
//	show ID        print the saved configuration of ID
//	clear [ID...]  forget the given ids, or every configuration
func configsCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("configs", stdout)
	dsn := fs.String("store", "", "field configuration store DSN (env JSONLKIT_STORE_DSN)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r := config.Run{Store: config.Store{DSN: *dsn}}
	r.ApplyEnv(os.Getenv)
	if r.Store.DSN == "" {
		return errors.New("no store configured; pass -store or set JSONLKIT_STORE_DSN")
	}
	st, err := openStore(ctx, r.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	m := fieldconfig.NewManager(st)
	switch sub := fs.Arg(0); sub {
	case "", "list":
		for _, id := range m.SavedIDs(ctx) {
			fmt.Fprintln(stdout, id)
		}
	case "show":
		if fs.NArg() != 2 {
			return errors.New("usage: configs show ID")
		}
		b, err := st.Get(ctx, fieldconfig.Key(fs.Arg(1)))
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no saved configuration for %q", fs.Arg(1))
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(b))
	case "clear":
		if fs.NArg() == 1 {
			fmt.Fprintf(stdout, "cleared %d configurations\n", m.ClearAll(ctx))
			return nil
		}
		for _, id := range fs.Args()[1:] {
			m.Clear(id)
			fmt.Fprintf(stdout, "cleared %s\n", id)
		}
	default:
		return fmt.Errorf("unknown configs command %q (want list, show or clear)", sub)
	}
	return nil
}
