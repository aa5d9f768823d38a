package config

import "sort"

var presets = map[string]*Config{
	"default": Default(),
	"damped": {
		Stiffness: 1.0, Mass: 1.0, Damping: 0.5,
		Gain:      []float64{0.5, -0.1},
		InitState: []float64{1.0, 0.0}, InitEstimate: []float64{0.0, 0.0},
		Steps: 251, Dt: 0.1,
	},
	"stiff": {
		Stiffness: 4.0, Mass: 1.0, Damping: 0.0,
		Gain:      []float64{0.5, -0.1},
		InitState: []float64{1.0, 0.0}, InitEstimate: []float64{0.0, 0.0},
		Steps: 251, Dt: 0.1,
	},
	"drifty": {
		Stiffness: 1.0, Mass: 1.0, Damping: 0.0,
		Gain:      []float64{0.05, -0.01},
		InitState: []float64{1.0, 0.0}, InitEstimate: []float64{0.0, 0.0},
		Steps: 501, Dt: 0.1,
	},
	"offset": {
		Stiffness: 1.0, Mass: 1.0, Damping: 0.0,
		Gain:      []float64{0.5, -0.1},
		InitState: []float64{1.0, 0.0}, InitEstimate: []float64{-1.0, 0.5},
		Steps: 251, Dt: 0.1,
	},
}

func GetPreset(name string) *Config {
	cfg, ok := presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
