package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SessionConfig is the explicit session configuration handed to the
// engine at construction. It replaces any notion of components reaching
// up through an ownership chain for shared settings: everything a test
// needs to know about the session arrives here.
type SessionConfig struct {
	// SessionID identifies the persisted session. Left empty, the engine
	// generates one; resuming requires the ID of the interrupted run.
	SessionID string `yaml:"session_id" json:"session_id"`

	// ProbandID identifies the person being tested.
	ProbandID string `yaml:"proband_id" json:"proband_id"`

	// Language selects localized stimulus variants in generators that
	// have them.
	Language string `yaml:"language" json:"language"`

	// Fullscreen is passed through to the presentation layer.
	Fullscreen bool `yaml:"fullscreen" json:"fullscreen"`

	// Resume restarts the session from the persisted partial record set
	// instead of from the beginning.
	Resume bool `yaml:"resume" json:"resume"`

	// Autobackup saves a snapshot after every resolved trial, same as
	// WithSaveEachTrial.
	Autobackup bool `yaml:"autobackup" json:"autobackup"`

	// TestNames lists the battery tests selected for this proband.
	TestNames []string `yaml:"test_names" json:"test_names"`
}

// DefaultConfig returns the configuration used when nothing is supplied.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		Language:   "en",
		Fullscreen: true,
	}
}

// LoadConfig reads a SessionConfig from a YAML file, applying defaults
// for absent fields.
func LoadConfig(path string) (SessionConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c SessionConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
