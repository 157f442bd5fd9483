package core

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the core model parameters. It is immutable after the core is
// constructed; the core keeps its own copy.
type Config struct {
	// Width is the maximum number of instructions retired per Step call.
	Width int `json:"width"`

	// SimulateDataStalls charges data-side access latency as stall cycles.
	SimulateDataStalls bool `json:"simulate_data_stalls"`

	// SimulateInstStalls charges instruction-side access latency as stall
	// cycles.
	SimulateInstStalls bool `json:"simulate_inst_stalls"`

	// FastMem accesses the functional memory directly, bypassing the ports.
	FastMem bool `json:"fastmem"`

	// SimPointProfile enables SimPoint basic-block-vector generation.
	SimPointProfile bool `json:"simpoint_profile"`

	// SimPointInterval is the BBV interval size in instructions.
	SimPointInterval uint64 `json:"simpoint_interval"`

	// SimPointProfileFile is the BBV output path (gzip).
	SimPointProfileFile string `json:"simpoint_profile_file"`
}

// DefaultConfig returns the default core parameters.
func DefaultConfig() Config {
	return Config{
		Width:               1,
		SimulateDataStalls:  false,
		SimulateInstStalls:  false,
		FastMem:             false,
		SimPointProfile:     false,
		SimPointInterval:    100000000,
		SimPointProfileFile: "simpoint.bb.gz",
	}
}

// Validate checks the static constraints on the configuration.
func (c Config) Validate() error {
	if c.Width < 1 {
		return &ConfigurationError{
			Reason: fmt.Sprintf("width must be >= 1, got %d", c.Width),
		}
	}
	if c.SimPointProfile && c.SimPointInterval == 0 {
		return &ConfigurationError{
			Reason: "simpoint_interval must be > 0 when simpoint_profile is set",
		}
	}
	if c.SimPointProfile && c.SimPointProfileFile == "" {
		return &ConfigurationError{
			Reason: "simpoint_profile_file must be set when simpoint_profile is set",
		}
	}
	return nil
}

// LoadConfig reads a Config from a JSON file. Missing fields keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read core config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse core config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize core config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write core config file: %w", err)
	}

	return nil
}
