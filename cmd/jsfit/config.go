package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rlugojr/example-models/jollyseber"
)

// Config holds the settings of a jsfit run.  Values are read from an
// optional YAML file and may be overridden by command line flags.
type Config struct {

	// Seed of the random source for simulation, Laplace draws and
	// latent state simulation.
	Seed uint64 `yaml:"seed"`

	// Number of all-zero pseudo-individuals appended to the data.
	Augment int `yaml:"augment"`

	// Number of posterior draws.
	Draws int `yaml:"draws"`

	// The occasion effect standard deviation is held at this value
	// when locating the posterior mode.
	Sigma float64 `yaml:"sigma"`

	// Number of goroutines, 0 for GOMAXPROCS.
	Workers int `yaml:"workers"`

	// SQLite database for storing draws, optional.
	DB string `yaml:"db"`

	// Name of the stored run, a random identifier if empty.
	Run string `yaml:"run"`

	// Prometheus textfile to which fit metrics are written, optional.
	Metrics string `yaml:"metrics"`

	Simulate SimSettings `yaml:"simulate"`
}

// SimSettings describes the population simulated by the simulate
// command.
type SimSettings struct {
	NSuper int       `yaml:"nsuper"`
	Phi    []float64 `yaml:"phi"`
	P      []float64 `yaml:"p"`
	Entry  []float64 `yaml:"entry"`
}

func defaultConfig() *Config {
	return &Config{
		Seed:    1,
		Augment: 500,
		Draws:   1000,
		Sigma:   jollyseber.DefaultModelConfig().SigmaFixed,
		Simulate: SimSettings{
			NSuper: 200,
			Phi:    []float64{0.8, 0.8, 0.8, 0.8, 0.8, 0.8},
			P:      []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
			Entry:  []float64{0.34, 0.11, 0.11, 0.11, 0.11, 0.11, 0.11},
		},
	}
}

// loadConfig reads the YAML file at path over the default settings.
// Unknown keys are an error.
func loadConfig(path string) (*Config, error) {

	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {

	switch {
	case cfg.Augment < 0:
		return fmt.Errorf("config: augment=%d is negative", cfg.Augment)
	case cfg.Draws <= 0:
		return fmt.Errorf("config: draws=%d must be positive", cfg.Draws)
	case !(cfg.Sigma > 0 && cfg.Sigma < jollyseber.SigmaMax):
		return fmt.Errorf("config: sigma=%v is not in (0, %d)", cfg.Sigma, jollyseber.SigmaMax)
	case cfg.Workers < 0:
		return fmt.Errorf("config: workers=%d is negative", cfg.Workers)
	}

	return nil
}

func (s *SimSettings) simConfig() *jollyseber.SimConfig {
	return &jollyseber.SimConfig{
		NSuper: s.NSuper,
		Phi:    s.Phi,
		P:      s.P,
		Entry:  s.Entry,
	}
}
