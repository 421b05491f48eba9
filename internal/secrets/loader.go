package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is wrapped by ConfigurationError when no source yields a value.
var ErrNotConfigured = errors.New("not configured")

// ConfigurationError reports credentials that a component cannot start without.
type ConfigurationError struct {
	Name string
	Hint string
	Err  error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Name, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// Env lists environment variables consulted, in order, when neither
	// File nor Value is set.
	Env []string
}

// Load returns the resolved secret value from the provided source. Lookup
// order is File, Value, then Env. The returned secret is always trimmed.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", &ConfigurationError{Name: name, Err: fmt.Errorf("reading file %q: %w", file, err)}
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", &ConfigurationError{Name: name, Err: fmt.Errorf("file %q is empty", file)}
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	for _, key := range src.Env {
		if secret := strings.TrimSpace(os.Getenv(key)); secret != "" {
			return secret, nil
		}
	}

	hint := ""
	if len(src.Env) > 0 {
		hint = "set " + strings.Join(src.Env, " or ")
	}
	return "", &ConfigurationError{Name: name, Hint: hint, Err: ErrNotConfigured}
}
