// Command expensectl is a terminal front-end for the expense tracker. It
// drives the same dashboard controller as the web UI against the /api
// backend.
//
// Usage:
//
//	expensectl [-api URL] [-timeout 10s] [-v] <command> [flags]
//
// Commands: summary, list, categories, add-expense, edit-expense,
// delete-expense, add-category, delete-category.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"expenses/internal/cli"
	"expenses/internal/client"
	"expenses/internal/config"
	"expenses/internal/dashboard"
	"expenses/internal/log"
)

var errUsage = errors.New("usage")

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	ctx, stop := cli.SignalContext()
	defer stop()

	os.Exit(run(ctx, os.Args[1:], cfg, os.Stdin, os.Stdout, os.Stderr))
}

// run parses the global flags and dispatches one command. It returns the
// process exit code.
func run(ctx context.Context, args []string, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("expensectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", cfg.APIBaseURL, "base URL of the REST API")
	timeout := fs.Duration("timeout", cfg.APITimeout, "per-request timeout")
	verbose := fs.Bool("v", false, "log requests to stderr")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(fs)
		return 2
	}

	lc := log.DefaultConfig()
	lc.Output = stderr
	lc.Level = slog.LevelError
	if *verbose {
		lc.Level = log.ParseLevel(cfg.LogLevel)
	}
	logger := log.New(lc)

	backend := client.New(*apiURL, client.WithTimeout(*timeout), client.WithLogger(logger))
	a := newApp(backend, stdin, stdout, stderr, logger)
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", fs.Arg(0))
		usage(fs)
		return 2
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	err := cmd.run(ctx, a, fs.Args()[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	case errors.Is(err, dashboard.ErrDeclined):
		fmt.Fprintln(stderr, a.styles.muted.Render("Nothing deleted."))
		return 0
	default:
		return 1
	}
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "Usage: expensectl [flags] <command> [command flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(out, "  %-16s %s\n", name, commands[name].help)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fs.PrintDefaults()
}

// requestTimeout bounds a whole command, including the initial load.
const requestTimeout = 2 * time.Minute
