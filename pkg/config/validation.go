package config

import (
	"fmt"
	"net"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tags cover the declarative part; validateCustomRules covers rules
// that cannot be expressed in tags. Log level normalization is handled in
// ApplyDefaults, not here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Listen must be a parseable host:port.
	if _, _, err := net.SplitHostPort(cfg.Server.Listen); err != nil {
		return fmt.Errorf("server.listen: invalid address %q: %w", cfg.Server.Listen, err)
	}

	// The selected audit store section must carry what its factory needs.
	switch cfg.Audit.Type {
	case "file":
		if dir, _ := cfg.Audit.File["dir"].(string); dir == "" {
			return fmt.Errorf("audit.file: dir is required")
		}
	case "badger":
		dir, _ := cfg.Audit.Badger["dir"].(string)
		inMemory, _ := cfg.Audit.Badger["in_memory"].(bool)
		if dir == "" && !inMemory {
			return fmt.Errorf("audit.badger: dir is required unless in_memory is set")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return fmt.Errorf("metrics: port is required when metrics are enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
