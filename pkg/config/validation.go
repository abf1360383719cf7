package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation via
// struct tags, with additional custom validation for rules that cannot be
// expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
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
	// An image only makes sense when a backend can load it
	if cfg.Namespace.Image != "" && cfg.Namespace.Type != "memory" && cfg.Namespace.Type != "badger" {
		return fmt.Errorf("namespace: image requires a loadable backend, got type %q", cfg.Namespace.Type)
	}

	// The badger backend needs somewhere to live
	if cfg.Namespace.Type == "badger" {
		path, _ := cfg.Namespace.Badger["path"].(string)
		inMemory, _ := cfg.Namespace.Badger["in_memory"].(bool)
		if path == "" && !inMemory {
			return fmt.Errorf("namespace.badger: path is required unless in_memory is set")
		}
	}

	// Backoff capping without growth is a configuration mistake
	if cfg.Checker.Retry.MaxInterval > 0 && cfg.Checker.Retry.Multiplier <= 1 {
		return fmt.Errorf("checker.retry: max_interval is set but multiplier is %v (no backoff growth to cap)",
			cfg.Checker.Retry.Multiplier)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
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
