// Package config loads the TOML configuration of a qxsense project.
package config

import (
	"time"
)

const DefaultFile = "qxsense.toml"

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Analysis      Analysis      `toml:"analysis"`
	Watch         Watch         `toml:"watch"`
	DB            Database      `toml:"db"`
	Observability Observability `toml:"observability"`
}

type Project struct {
	Root          string   `toml:"root"`
	MetadataGlobs []string `toml:"metadata_globs"`
	SourceDir     string   `toml:"source_dir"`
	DefineCalls   []string `toml:"define_calls"`
	RootTypes     []string `toml:"root_types"`
}

type Analysis struct {
	ViewCacheSize      int `toml:"view_cache_size"`
	MaxDepth           int `toml:"max_depth"`
	MaxCompletionItems int `toml:"max_completion_items"`
	DecodeWorkers      int `toml:"decode_workers"`
}

type Watch struct {
	Enabled      bool          `toml:"enabled"`
	Debounce     time.Duration `toml:"debounce"`
	ExcludeDirs  []string      `toml:"exclude_dirs"`
	ExcludeFiles []string      `toml:"exclude_files"`
	ReloadRate   float64       `toml:"reload_rate"`
	ReloadBurst  int           `toml:"reload_burst"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
