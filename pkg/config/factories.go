package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
	auditBadger "github.com/frtem2008/Server-finale-2.0/pkg/audit/badger"
	auditFile "github.com/frtem2008/Server-finale-2.0/pkg/audit/file"
	auditMemory "github.com/frtem2008/Server-finale-2.0/pkg/audit/memory"
)

// CreateAuditStore creates an audit store based on configuration.
//
// The Type field selects the implementation; the matching type-specific map
// is decoded into the implementation's options struct and passed to its
// constructor.
//
// Supported types:
//   - "file": append-only line files, one per category (pkg/audit/file)
//   - "badger": embedded BadgerDB database (pkg/audit/badger)
//   - "memory": in-process, non-durable (pkg/audit/memory)
func CreateAuditStore(cfg *AuditConfig) (audit.Store, error) {
	switch cfg.Type {
	case "file":
		return createFileAuditStore(cfg.File)
	case "badger":
		return createBadgerAuditStore(cfg.Badger)
	case "memory":
		return auditMemory.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown audit store type: %q", cfg.Type)
	}
}

func createFileAuditStore(options map[string]any) (audit.Store, error) {
	type FileAuditStoreConfig struct {
		Dir string `mapstructure:"dir"`
	}

	var storeCfg FileAuditStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode file audit store config: %w", err)
	}

	if storeCfg.Dir == "" {
		return nil, fmt.Errorf("file audit store: dir is required")
	}

	store, err := auditFile.NewFileStore(storeCfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create file audit store: %w", err)
	}

	return store, nil
}

func createBadgerAuditStore(options map[string]any) (audit.Store, error) {
	type BadgerAuditStoreConfig struct {
		Dir      string `mapstructure:"dir"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var storeCfg BadgerAuditStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger audit store config: %w", err)
	}

	if storeCfg.Dir == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger audit store: dir is required unless in_memory is set")
	}

	store, err := auditBadger.NewBadgerStore(auditBadger.Options{
		Dir:      storeCfg.Dir,
		InMemory: storeCfg.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger audit store: %w", err)
	}

	return store, nil
}
