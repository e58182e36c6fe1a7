package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "VERBOSE"
	assert.Error(t, Validate(cfg))
}

func TestValidate_InvalidListenAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Listen = "no-port-here"
	assert.Error(t, Validate(cfg))
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ShutdownTimeout = 0
	assert.Error(t, Validate(cfg))
}

func TestValidate_UnknownAuditType(t *testing.T) {
	cfg := validConfig()
	cfg.Audit.Type = "cassandra"
	assert.Error(t, Validate(cfg))
}

func TestValidate_FileStoreNeedsDir(t *testing.T) {
	cfg := validConfig()
	cfg.Audit.File = map[string]any{}
	assert.Error(t, Validate(cfg))
}

func TestValidate_BadgerStoreNeedsDirOrInMemory(t *testing.T) {
	cfg := validConfig()
	cfg.Audit.Type = "badger"
	cfg.Audit.Badger = map[string]any{}
	assert.Error(t, Validate(cfg))

	cfg.Audit.Badger = map[string]any{"in_memory": true}
	assert.NoError(t, Validate(cfg))
}

func TestValidate_MetricsPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Port = 70000
	assert.Error(t, Validate(cfg))
}
