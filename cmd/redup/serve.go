package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/eargollo/redup/internal/api"
	"github.com/eargollo/redup/internal/db"
	"github.com/eargollo/redup/internal/report"
)

const serveUsage = `Usage:
  redup serve [-db FILE] [-addr ADDR]

Options:
  -db FILE       report written with -f sql (default redup.db)
  -addr ADDR     listen address (default :8080)
`

// runServe exposes a persisted report over HTTP until ctx is cancelled.
func runServe(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("redup serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, serveUsage) }
	dbPath := fs.String("db", report.DefaultDBPath, "")
	addr := fs.String("addr", ":8080", "")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(stdout, serveUsage)
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprint(stderr, serveUsage)
		return exitUsage
	}

	setupLogging(stderr, options{}, "info")

	database, err := db.OpenReport(*dbPath)
	if err != nil {
		slog.Error("open report", "error", err)
		return exitFailure
	}
	defer database.Close()

	slog.Info("redup serving report", "version", version, "db_path", *dbPath, "addr", *addr)
	if err := api.New(*addr, database, version).Run(ctx); err != nil {
		slog.Error("http server", "error", err)
		return exitFailure
	}
	return exitOK
}
