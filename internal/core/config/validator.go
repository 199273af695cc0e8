package config

import (
	"fmt"
	"qxsense/internal/core/errors"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

var calleePattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)

func validate(cfg *Config) error {
	checks := []func(*Config) error{
		validateVersion,
		validateProject,
		validateAnalysis,
		validateWatch,
		validateDatabase,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.CodeValidationError, fmt.Sprintf(format, args...))
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	for i, pattern := range cfg.Project.MetadataGlobs {
		if !doublestar.ValidatePattern(pattern) {
			return invalid("project.metadata_globs[%d] is not a valid pattern: %q", i, pattern)
		}
	}
	for i, call := range cfg.Project.DefineCalls {
		if !calleePattern.MatchString(call) {
			return invalid("project.define_calls[%d] must be a dotted identifier, got %q", i, call)
		}
	}
	for i, name := range cfg.Project.RootTypes {
		if strings.ContainsAny(name, " \t") {
			return invalid("project.root_types[%d] must not contain whitespace, got %q", i, name)
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.ViewCacheSize < 0 {
		return invalid("analysis.view_cache_size must be >= 0, got %d", cfg.Analysis.ViewCacheSize)
	}
	if cfg.Analysis.MaxDepth < 1 {
		return invalid("analysis.max_depth must be >= 1, got %d", cfg.Analysis.MaxDepth)
	}
	if cfg.Analysis.MaxCompletionItems < 1 {
		return invalid("analysis.max_completion_items must be >= 1, got %d", cfg.Analysis.MaxCompletionItems)
	}
	if cfg.Analysis.DecodeWorkers < 1 {
		return invalid("analysis.decode_workers must be >= 1, got %d", cfg.Analysis.DecodeWorkers)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce must not be negative")
	}
	if cfg.Watch.ReloadRate < 0 || cfg.Watch.ReloadBurst < 0 {
		return invalid("watch.reload_rate and watch.reload_burst must not be negative")
	}
	for i, pattern := range cfg.Watch.ExcludeFiles {
		if _, err := glob.Compile(pattern); err != nil {
			return invalid("watch.exclude_files[%d] is not a valid glob %q: %v", i, pattern, err)
		}
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Enabled && strings.TrimSpace(cfg.DB.Path) == "" {
		return invalid("db.path must not be empty when db.enabled is set")
	}
	return nil
}
