// Package config loads the scenario-mappings file that names base
// scenarios and their injection points, and the requirements-service
// connection settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FallbackDelay applies when neither an injection point nor the common
// settings specify a trigger delay.
const FallbackDelay = 3.0

// Mappings is the scenario_mappings.yaml document.
type Mappings struct {
	CommonSettings CommonSettings             `yaml:"common_settings"`
	Scenarios      map[string]ScenarioMapping `yaml:"scenarios"`
}

type CommonSettings struct {
	InjectionPoints map[string]InjectionPointDefaults `yaml:"injection_points"`
}

// InjectionPointDefaults describes a named injection point shared across
// scenarios.
type InjectionPointDefaults struct {
	Description  string  `yaml:"description"`
	DefaultDelay float64 `yaml:"default_delay"`
}

// ScenarioMapping binds one base scenario to its injection points.
type ScenarioMapping struct {
	BaseFile        string                    `yaml:"base_file"`
	Actor           string                    `yaml:"actor"`
	InjectionPoints map[string]InjectionPoint `yaml:"injection_points"`
}

// InjectionPoint is an anchor event plus an optional per-scenario delay
// override.
type InjectionPoint struct {
	AfterEvent int      `yaml:"after_event"`
	Delay      *float64 `yaml:"delay"`
}

// ActorName returns the configured target actor, defaulting to "ego".
func (m ScenarioMapping) ActorName() string {
	if m.Actor == "" {
		return "ego"
	}
	return m.Actor
}

// LoadMappings reads and parses a scenario-mappings file.
func LoadMappings(path string) (*Mappings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Mappings
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if len(m.Scenarios) == 0 {
		return nil, fmt.Errorf("%s: no scenarios defined", path)
	}

	return &m, nil
}

// Scenario returns the mapping for the named base scenario.
func (m *Mappings) Scenario(name string) (ScenarioMapping, error) {
	sm, ok := m.Scenarios[name]
	if !ok {
		return ScenarioMapping{}, fmt.Errorf("scenario %q not found in mappings", name)
	}
	return sm, nil
}

// EffectiveDelay resolves the trigger delay for one injection point:
// the point's own override wins, then the common default for the label,
// then FallbackDelay.
func (m *Mappings) EffectiveDelay(label string, p InjectionPoint) float64 {
	if p.Delay != nil {
		return *p.Delay
	}
	if d, ok := m.CommonSettings.InjectionPoints[label]; ok && d.DefaultDelay > 0 {
		return d.DefaultDelay
	}
	return FallbackDelay
}

// ServiceConfig holds the requirements-service connection settings.
type ServiceConfig struct {
	BaseURL   string `yaml:"base_url"`
	ProjectID int    `yaml:"project_id"`
	APIID     string `yaml:"api_id"`
	APISecret string `yaml:"api_secret"`
	Proxy     string `yaml:"proxy"`
}

// LoadServiceConfig reads the service configuration. When the file is
// absent a sample is written next to the requested path and an error is
// returned telling the operator to fill it in.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		samplePath := path + ".sample"
		if werr := writeSampleServiceConfig(samplePath); werr != nil {
			return nil, fmt.Errorf("%s missing and sample write failed: %w", path, werr)
		}
		return nil, fmt.Errorf("%s not found; a sample was written to %s", path, samplePath)
	}
	if err != nil {
		return nil, err
	}

	var cfg ServiceConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate reports missing required settings.
func (c *ServiceConfig) Validate() []string {
	var problems []string
	if c.BaseURL == "" {
		problems = append(problems, "base_url is not set")
	}
	if c.ProjectID == 0 {
		problems = append(problems, "project_id is not set")
	}
	if c.APIID == "" {
		problems = append(problems, "api_id is not set")
	}
	if c.APISecret == "" {
		problems = append(problems, "api_secret is not set")
	}
	return problems
}

func writeSampleServiceConfig(path string) error {
	sample := ServiceConfig{
		BaseURL:   "https://stargate.jamacloud.com",
		ProjectID: 124,
		APIID:     "YOUR_API_ID_HERE",
		APISecret: "YOUR_API_SECRET_HERE",
	}
	b, err := yaml.Marshal(&sample)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
