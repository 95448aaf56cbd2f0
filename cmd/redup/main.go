package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/eargollo/redup/internal/config"
	"github.com/eargollo/redup/internal/report"
	"github.com/eargollo/redup/internal/scan"
)

// Injected at build time via -ldflags; defaults to "dev".
var version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

const usage = `redup is a tool for finding duplicate files

Usage:
  redup [OPTIONS] DIR          recursively search DIR
  redup [OPTIONS] -stdin       read file paths from standard input (also: "-" or "--")
  redup serve -db FILE         browse a report written with -f sql

Options:
  -q, -quiet                   suppress the heading and informational logs
  -v, -verbose                 show per-file diagnostics
  -V, -version                 show version
  -h, -help                    show this help
  -o, -output FILE             write the report to FILE (must not exist; default stdout)
  -f, -format txt|csv|sql      output format (default txt)
  -j, -workers N               files hashed concurrently (default: number of CPUs)
  -hash xxh3|sha256|sha1       content hash (default xxh3)
  -verify                      confirm duplicates byte by byte
  -exclude PATH                skip PATH while walking (repeatable)
  -config FILE                 YAML config file (default redup.yaml)

Files are compared by content, so duplicates are found regardless of name.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options holds everything parsed from the command line.
type options struct {
	quiet, verbose, showVersion, help bool
	stdin, verify                     bool
	output, format, hash, configPath  string
	workers                           int
	excludes                          stringList
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func newFlagSet(opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("redup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	alias := func(p *bool, short, long string) {
		fs.BoolVar(p, short, false, "")
		fs.BoolVar(p, long, false, "")
	}
	aliasString := func(p *string, short, long string) {
		fs.StringVar(p, short, "", "")
		fs.StringVar(p, long, "", "")
	}
	alias(&opts.quiet, "q", "quiet")
	alias(&opts.verbose, "v", "verbose")
	alias(&opts.showVersion, "V", "version")
	alias(&opts.help, "h", "help")
	aliasString(&opts.output, "o", "output")
	aliasString(&opts.format, "f", "format")
	fs.IntVar(&opts.workers, "j", 0, "")
	fs.IntVar(&opts.workers, "workers", 0, "")
	fs.StringVar(&opts.hash, "hash", "", "")
	fs.BoolVar(&opts.verify, "verify", false, "")
	fs.BoolVar(&opts.stdin, "stdin", false, "")
	fs.Var(&opts.excludes, "exclude", "")
	fs.StringVar(&opts.configPath, "config", "redup.yaml", "")
	return fs
}

// run is the whole program minus process wiring; it returns the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "serve" {
		return runServe(ctx, args[1:], stdout, stderr)
	}

	var opts options
	fs := newFlagSet(&opts, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(stdout, usage)
			return exitOK
		}
		return exitUsage
	}
	if opts.help {
		fmt.Fprint(stdout, usage)
		return exitOK
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	// A bare "--" (flag terminator) with nothing after it selects stdin mode.
	if fs.NArg() == 0 && len(args) > 0 && args[len(args)-1] == "--" {
		opts.stdin = true
	}
	if fs.NArg() == 1 && fs.Arg(0) == "-" {
		opts.stdin = true
	}

	// ── Config ─────────────────────────────────────────────────────────────
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		setupLogging(stderr, opts, "info")
		slog.Error("load config", "error", err)
		return exitFailure
	}
	applyFlags(fs, &opts, cfg)
	setupLogging(stderr, opts, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid options", "error", err)
		return exitUsage
	}

	var in scan.Input
	switch {
	case opts.stdin && fs.NArg() > 0 && fs.Arg(0) != "-":
		fmt.Fprintf(stderr, "ERROR: a directory and stdin mode are mutually exclusive\n%s", usage)
		return exitUsage
	case opts.stdin:
		in.List = stdin
	case fs.NArg() == 1:
		in.Root = fs.Arg(0)
	default:
		fmt.Fprintf(stderr, "ERROR: expected exactly one directory\n%s", usage)
		return exitUsage
	}

	sink, err := report.New(cfg.Format, opts.output, stdout, opts.quiet)
	if err != nil {
		slog.Error("output", "error", err)
		return exitUsage
	}
	// Refuse an existing output before spending time on the scan.
	dest, err := report.Destination(cfg.Format, opts.output)
	if err == nil {
		err = report.CheckOutput(dest)
	}
	if err != nil {
		slog.Error("output", "error", err)
		return exitFailure
	}

	// ── Scan ───────────────────────────────────────────────────────────────
	scanner, err := scan.New(scan.Config{
		Walkers:      cfg.Walkers,
		Workers:      cfg.Workers,
		Algorithm:    cfg.Hash,
		Verify:       cfg.Verify,
		ExcludePaths: cfg.ExcludePaths,
	})
	if err != nil {
		slog.Error("invalid options", "error", err)
		return exitUsage
	}

	rep, err := scanner.Run(ctx, in, nil)
	if err != nil {
		var inputErr *scan.InputError
		switch {
		case errors.As(err, &inputErr):
			slog.Error("unusable input", "error", err)
			return exitFailure
		case ctx.Err() != nil:
			slog.Warn("scan interrupted")
			return exitInterrupted
		default:
			slog.Error("scan failed", "error", err)
			return exitFailure
		}
	}

	// ── Output ─────────────────────────────────────────────────────────────
	if err := sink.Write(ctx, rep); err != nil {
		slog.Error("write report", "error", err)
		return exitFailure
	}
	return exitOK
}

// applyFlags overlays explicitly set flags on top of the config file.
func applyFlags(fs *flag.FlagSet, opts *options, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f", "format":
			cfg.Format = opts.format
		case "j", "workers":
			cfg.Workers = opts.workers
		case "hash":
			cfg.Hash = opts.hash
		case "verify":
			cfg.Verify = opts.verify
		case "exclude":
			cfg.ExcludePaths = append(cfg.ExcludePaths, opts.excludes...)
		}
	})
}

// setupLogging installs the default slog handler on stderr. -q and -v
// override the configured level.
func setupLogging(stderr io.Writer, opts options, level string) {
	lvl := parseLogLevel(level)
	switch {
	case opts.verbose:
		lvl = slog.LevelDebug
	case opts.quiet:
		lvl = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: lvl,
	})))
}

// parseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
