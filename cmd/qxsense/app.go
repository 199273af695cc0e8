package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"qxsense/internal/core/config"
	"qxsense/internal/core/errors"
	"qxsense/internal/core/project"
	"qxsense/internal/engine/scan"
	"qxsense/internal/shared/observability"
	"qxsense/internal/shared/util"
	"strings"
)

type options struct {
	ConfigPath string
	Root       string
	File       string
	Offset     int
	Expr       string
	Mode       string
	Out        string
}

type classesResult struct {
	Classes  []string `json:"classes"`
	Packages int      `json:"packages"`
}

func loadConfig(opts options) (*config.Config, string, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	explicit := path != ""
	if !explicit {
		path = config.DefaultFile
	}
	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case !explicit && errors.IsCode(err, errors.CodeNotFound):
		cfg, path = config.Default(), ""
	default:
		return nil, "", err
	}
	if opts.Root != "" {
		cfg.Project.Root = opts.Root
	}
	return cfg, path, nil
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, cfgPath, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if addr := cfg.Observability.MetricsAddress; addr != "" {
		go func() {
			if err := observability.ServeMetrics(ctx, addr); err != nil {
				slog.Warn("metrics server stopped", "error", err)
			}
		}()
	}
	shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "setup tracing")
	}
	defer func() { _ = shutdown(context.Background()) }()

	proj, err := project.New(cfg)
	if err != nil {
		return err
	}
	defer proj.Dispose()

	if err := proj.Initialize(ctx); err != nil {
		return err
	}

	switch opts.Mode {
	case "classes":
		db := proj.Database()
		return emit(stdout, opts.Out, classesResult{Classes: db.ClassNames(), Packages: db.Stats().Packages})
	case "watch":
		return watch(ctx, proj, cfgPath)
	}

	src, pos, err := readSource(opts)
	if err != nil {
		return err
	}

	switch opts.Mode {
	case "type":
		text := opts.Expr
		if text == "" {
			span := scan.ScanAround(src, pos)
			if span == nil {
				return emit(stdout, opts.Out, nil)
			}
			text = strings.TrimSpace(span.Text)
			pos = span.Start
		}
		return emit(stdout, opts.Out, proj.TypeAt(ctx, src, pos, text))
	case "complete":
		return emit(stdout, opts.Out, proj.Complete(ctx, src, pos))
	case "define":
		return emit(stdout, opts.Out, proj.Define(ctx, src, pos))
	case "signature":
		return emit(stdout, opts.Out, proj.Signature(ctx, src, pos))
	case "explore":
		return explore(proj.Complete(ctx, src, pos), opts.File, pos)
	default:
		return errors.AddContext(
			errors.New(errors.CodeNotSupported, "unknown mode"),
			errors.CtxOperation, opts.Mode)
	}
}

func readSource(opts options) (string, int, error) {
	if opts.File == "" {
		return "", 0, errors.New(errors.CodeValidationError, fmt.Sprintf("mode %s requires -file", opts.Mode))
	}
	data, err := os.ReadFile(opts.File)
	if err != nil {
		return "", 0, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, opts.File)
	}
	src := string(data)
	pos := opts.Offset
	if pos < 0 || pos > len(src) {
		pos = len(src)
	}
	return src, pos, nil
}

func watch(ctx context.Context, proj *project.Context, cfgPath string) error {
	if err := proj.Watch(ctx); err != nil {
		return err
	}
	if cfgPath != "" {
		w := config.NewWatcher(cfgPath, func(*config.Config) {
			// Root and globs are fixed for the life of the process; a reload
			// rebuilds the database from the same files.
			if err := proj.Reinitialize(ctx); err != nil {
				slog.Warn("reinitialize after config change failed", "error", err)
			}
		})
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}
	<-ctx.Done()
	return nil
}

func emit(stdout io.Writer, outPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if outPath != "" {
		return util.WriteFileWithDirs(outPath, data, 0o644)
	}
	_, err = stdout.Write(data)
	return err
}
