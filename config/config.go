// Package config loads YAML configuration files with environment variable
// expansion.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that check themselves
// after decoding.
type Validator interface {
	Validate() error
}

// Load decodes the YAML file at path into target. $VAR and ${VAR} are
// expanded from the environment before decoding. Fields absent from the
// file keep the values target already holds, so defaults can be set before
// the call.
func Load[T any](path string, target *T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return Decode([]byte(os.ExpandEnv(string(data))), path, target)
}

// Decode is Load for configuration already in memory; name only labels
// errors.
func Decode[T any](data []byte, name string, target *T) error {
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("config: parse %s: %w", name, err)
	}
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: validate %s: %w", name, err)
		}
	}
	return nil
}
