package config

import (
	"os"
	"path/filepath"
	"qxsense/internal/core/errors"
	"qxsense/internal/engine/source"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	defaultMetadataGlobs = []string{
		"compiled/*/transpiled/**/*.json",
		"compiled/meta/**/*.json",
	}
	defaultExcludeDirs = []string{".git", "node_modules"}
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeNotFound, "read config"),
			errors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeValidationError, "decode config"),
			errors.CtxPath, path)
	}

	applyDefaults(&cfg)
	normalizeProject(&cfg, filepath.Dir(path))
	ApplyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if len(cfg.Project.MetadataGlobs) == 0 {
		cfg.Project.MetadataGlobs = append([]string(nil), defaultMetadataGlobs...)
	}
	if strings.TrimSpace(cfg.Project.SourceDir) == "" {
		cfg.Project.SourceDir = "source/class"
	}
	if len(cfg.Project.DefineCalls) == 0 {
		cfg.Project.DefineCalls = append([]string(nil), source.DefaultDefineCalls...)
	}
	if len(cfg.Project.RootTypes) == 0 {
		cfg.Project.RootTypes = []string{"Object"}
	}

	if cfg.Analysis.ViewCacheSize == 0 {
		cfg.Analysis.ViewCacheSize = 512
	}
	if cfg.Analysis.MaxDepth == 0 {
		cfg.Analysis.MaxDepth = 64
	}
	if cfg.Analysis.MaxCompletionItems == 0 {
		cfg.Analysis.MaxCompletionItems = 200
	}
	if cfg.Analysis.DecodeWorkers == 0 {
		cfg.Analysis.DecodeWorkers = runtime.GOMAXPROCS(0)
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if len(cfg.Watch.ExcludeDirs) == 0 {
		cfg.Watch.ExcludeDirs = append([]string(nil), defaultExcludeDirs...)
	}
	if cfg.Watch.ReloadRate == 0 {
		cfg.Watch.ReloadRate = 20
	}
	if cfg.Watch.ReloadBurst == 0 {
		cfg.Watch.ReloadBurst = 50
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = ".qxsense/records.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "qxsense"
	}
}

// normalizeProject trims list entries and anchors a relative project root at
// the directory holding the config file.
func normalizeProject(cfg *Config, base string) {
	cfg.Project.Root = ResolveRelative(base, cfg.Project.Root)
	cfg.Project.MetadataGlobs = trimAll(cfg.Project.MetadataGlobs)
	cfg.Project.DefineCalls = trimAll(cfg.Project.DefineCalls)
	cfg.Project.RootTypes = trimAll(cfg.Project.RootTypes)
	cfg.Watch.ExcludeDirs = trimAll(cfg.Watch.ExcludeDirs)
	cfg.Watch.ExcludeFiles = trimAll(cfg.Watch.ExcludeFiles)
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
