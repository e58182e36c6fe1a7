package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Called after loading from file and environment to fill missing values.
// Zero values (0, "", false, nil) are replaced with defaults; explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
	applyAuditDefaults(&cfg.Audit)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize for consistent internal representation.
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	// Console defaults to on, but only when the section looks unconfigured
	// (empty listen address). An explicit config keeps whatever it set.
	if !cfg.Console && cfg.Listen == "" {
		cfg.Console = true
	}

	if cfg.Listen == "" {
		// The relay's historical port.
		cfg.Listen = ":26780"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	// Same unconfigured-state heuristic: a zero port means the section was
	// never touched, so metrics come up enabled on the default port.
	if cfg.Port == 0 {
		cfg.Port = 9090
		cfg.Enabled = true
	}
}

func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.Type == "" {
		cfg.Type = "file"
	}

	if cfg.File == nil {
		cfg.File = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation).
	if _, ok := cfg.File["dir"]; !ok {
		cfg.File["dir"] = "logFolder"
	}
	if _, ok := cfg.Badger["dir"]; !ok {
		cfg.Badger["dir"] = "auditdb"
	}
}
