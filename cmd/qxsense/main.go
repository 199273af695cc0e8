package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var (
	configPath = flag.String("config", "", "Path to config file (default: ./qxsense.toml when present)")
	root       = flag.String("root", "", "Project root, overrides [project].root")
	file       = flag.String("file", "", "Source file to query")
	offset     = flag.Int("offset", -1, "Byte offset in -file (default: end of file)")
	expr       = flag.String("expr", "", "Expression to resolve in type mode (default: expression at -offset)")
	mode       = flag.String("mode", "type", "One of: type, complete, define, signature, classes, watch, explore")
	out        = flag.String("out", "", "Write JSON results to this file instead of stdout")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.3.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("qxsense v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	// stdout carries results; logs go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		ConfigPath: *configPath,
		Root:       *root,
		File:       *file,
		Offset:     *offset,
		Expr:       *expr,
		Mode:       *mode,
		Out:        *out,
	}
	if err := run(ctx, opts, os.Stdout); err != nil {
		slog.Error("qxsense failed", "mode", opts.Mode, "error", err)
		os.Exit(1)
	}
}
