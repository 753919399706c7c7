// Package config deals with the soak runner configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is the version of the tool, set at build time.
var Version string

// Config is the top level struct representing the config for the soak
// runner.
type Config struct {
	SoakConfiguration        SoakConfiguration        `yaml:"SoakConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// SoakConfiguration describes the churn workload.
type SoakConfiguration struct {
	// Workers is the number of goroutines churning handles.
	Workers int `yaml:"Workers"`
	// Slots is the size of the shared ring the workers fight over.
	Slots int `yaml:"Slots"`
	// CacheSize bounds the weak-reference cache used by the workers.
	CacheSize int `yaml:"CacheSize"`
	// Duration limits the run; the command line may override it.
	Duration time.Duration `yaml:"Duration"`
	// ReportInterval sets how often lifetime counters are logged.
	ReportInterval time.Duration `yaml:"ReportInterval"`
	// TrackLeaks enables per-payload allocation stacks. Expensive.
	TrackLeaks bool `yaml:"TrackLeaks"`
}

// ApplicationConfiguration holds the ambient service config.
type ApplicationConfiguration struct {
	LogPath    string       `yaml:"LogPath"`
	Pprof      BasicService `yaml:"Pprof"`
	Prometheus BasicService `yaml:"Prometheus"`
}

// Validate checks that the workload parameters make sense.
func (s SoakConfiguration) Validate() error {
	if s.Workers <= 0 {
		return fmt.Errorf("invalid Workers %d, expected positive", s.Workers)
	}
	if s.Slots <= 0 {
		return fmt.Errorf("invalid Slots %d, expected positive", s.Slots)
	}
	if s.CacheSize <= 0 {
		return fmt.Errorf("invalid CacheSize %d, expected positive", s.CacheSize)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("invalid Duration %s, expected positive", s.Duration)
	}
	return nil
}

// Load attempts to load the config from the given path.
func Load(path string) (Config, error) {
	configData, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	config := Config{
		SoakConfiguration: SoakConfiguration{
			Workers:        8,
			Slots:          64,
			CacheSize:      32,
			Duration:       time.Minute,
			ReportInterval: 10 * time.Second,
		},
	}

	err = yaml.Unmarshal(configData, &config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err = config.SoakConfiguration.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
