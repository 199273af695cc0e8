package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: QXSENSE_[SECTION]_[KEY] (e.g., QXSENSE_DB_PATH).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Project.Root, "QXSENSE_PROJECT_ROOT")
	setEnvString(&cfg.Project.SourceDir, "QXSENSE_PROJECT_SOURCE_DIR")

	setEnvInt(&cfg.Analysis.ViewCacheSize, "QXSENSE_ANALYSIS_VIEW_CACHE_SIZE")
	setEnvInt(&cfg.Analysis.MaxDepth, "QXSENSE_ANALYSIS_MAX_DEPTH")
	setEnvInt(&cfg.Analysis.MaxCompletionItems, "QXSENSE_ANALYSIS_MAX_COMPLETION_ITEMS")

	setEnvBool(&cfg.Watch.Enabled, "QXSENSE_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "QXSENSE_WATCH_DEBOUNCE")

	setEnvBool(&cfg.DB.Enabled, "QXSENSE_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "QXSENSE_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "QXSENSE_DB_BUSY_TIMEOUT")

	setEnvString(&cfg.Observability.MetricsAddress, "QXSENSE_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "QXSENSE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "QXSENSE_OBSERVABILITY_SERVICE_NAME")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
