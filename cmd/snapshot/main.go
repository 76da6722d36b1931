// Package main runs a single refresh cycle and writes the resulting token
// tables as JSON. It loads listings the same way the server does but does
// not wait for upstream signals.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/pflag"

	"token-registry/internal/app"
	"token-registry/internal/config"
	"token-registry/internal/logging"
)

func main() {
	config.LoadEnvFile(".env")

	var output string
	cfg, err := config.Parse(os.Args[0], os.Args[1:], func(fs *pflag.FlagSet) {
		fs.StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(context.Background(), cfg, logger, output, os.Stdout); err != nil {
		level.Error(logger).Log("msg", "snapshot failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger log.Logger, output string, stdout io.Writer) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Seed(ctx); err != nil {
		return err
	}
	if _, err := a.Orchestrator.RefreshAll(ctx); err != nil {
		return err
	}

	w := stdout
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a.Registry.Snapshot())
}
