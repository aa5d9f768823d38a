package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStiffness = 1.0
	DefaultMass      = 1.0
	DefaultDamping   = 0.0
	DefaultDt        = 0.1
	DefaultSteps     = 251
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Stiffness    float64   `yaml:"stiffness"`
	Mass         float64   `yaml:"mass"`
	Damping      float64   `yaml:"damping"`
	Gain         []float64 `yaml:"gain"`
	InitState    []float64 `yaml:"init_state"`
	InitEstimate []float64 `yaml:"init_estimate"`
	Input        float64   `yaml:"input"`
	Steps        int       `yaml:"steps"`
	Dt           float64   `yaml:"dt"`
	T0           float64   `yaml:"t0"`
}

func Default() *Config {
	return &Config{
		Stiffness:    DefaultStiffness,
		Mass:         DefaultMass,
		Damping:      DefaultDamping,
		Gain:         []float64{0.5, -0.1},
		InitState:    []float64{1.0, 0.0},
		InitEstimate: []float64{0.0, 0.0},
		Input:        0.0,
		Steps:        DefaultSteps,
		Dt:           DefaultDt,
		T0:           0.0,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	out.Gain = append([]float64(nil), c.Gain...)
	out.InitState = append([]float64(nil), c.InitState...)
	out.InitEstimate = append([]float64(nil), c.InitEstimate...)
	return &out
}

func (c *Config) Validate() error {
	if c.Mass == 0 || !isFinite(c.Mass) {
		return fmt.Errorf("%w: mass must be finite and nonzero", ErrInvalid)
	}
	if !isFinite(c.Stiffness) {
		return fmt.Errorf("%w: stiffness must be finite", ErrInvalid)
	}
	if !isFinite(c.Damping) {
		return fmt.Errorf("%w: damping must be finite", ErrInvalid)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive", ErrInvalid)
	}
	if c.Dt <= 0 || !isFinite(c.Dt) {
		return fmt.Errorf("%w: dt must be positive and finite", ErrInvalid)
	}
	if !isFinite(c.Input) || !isFinite(c.T0) {
		return fmt.Errorf("%w: input and t0 must be finite", ErrInvalid)
	}
	for name, v := range map[string][]float64{
		"gain":          c.Gain,
		"init_state":    c.InitState,
		"init_estimate": c.InitEstimate,
	} {
		if len(v) != 2 {
			return fmt.Errorf("%w: %s must have 2 entries", ErrInvalid, name)
		}
		for _, x := range v {
			if !isFinite(x) {
				return fmt.Errorf("%w: %s must be finite", ErrInvalid, name)
			}
		}
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
