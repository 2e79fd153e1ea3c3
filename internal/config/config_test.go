package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleMappings = `common_settings:
  injection_points:
    before_start:
      description: check before function start
      default_delay: 3.0
    during_auto_control:
      description: fault during automated control
      default_delay: 0.5
scenarios:
  AP_depart:
    base_file: AP_basic_sample1.json
    injection_points:
      before_start:
        after_event: 2
      during_auto_control:
        after_event: 10
        delay: 1.5
`

func writeMappings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario_mappings.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMappings(t *testing.T) {
	m, err := LoadMappings(writeMappings(t, sampleMappings))
	if err != nil {
		t.Fatalf("LoadMappings: %v", err)
	}

	sm, err := m.Scenario("AP_depart")
	if err != nil {
		t.Fatalf("Scenario: %v", err)
	}
	if sm.BaseFile != "AP_basic_sample1.json" {
		t.Errorf("base_file: got %q", sm.BaseFile)
	}
	if sm.ActorName() != "ego" {
		t.Errorf("default actor: got %q", sm.ActorName())
	}
	if got := sm.InjectionPoints["before_start"].AfterEvent; got != 2 {
		t.Errorf("before_start after_event: got %d", got)
	}

	if _, err := m.Scenario("unknown"); err == nil {
		t.Error("expected error for unknown scenario")
	}
}

func TestEffectiveDelay(t *testing.T) {
	m, err := LoadMappings(writeMappings(t, sampleMappings))
	if err != nil {
		t.Fatalf("LoadMappings: %v", err)
	}
	sm, _ := m.Scenario("AP_depart")

	// Common default for the label.
	if got := m.EffectiveDelay("before_start", sm.InjectionPoints["before_start"]); got != 3.0 {
		t.Errorf("common default: want 3.0, got %g", got)
	}
	// Per-point override wins.
	if got := m.EffectiveDelay("during_auto_control", sm.InjectionPoints["during_auto_control"]); got != 1.5 {
		t.Errorf("override: want 1.5, got %g", got)
	}
	// Unknown label falls back.
	if got := m.EffectiveDelay("unknown", InjectionPoint{AfterEvent: 1}); got != FallbackDelay {
		t.Errorf("fallback: want %g, got %g", FallbackDelay, got)
	}
}

func TestLoadMappings_Empty(t *testing.T) {
	if _, err := LoadMappings(writeMappings(t, "common_settings: {}\n")); err == nil {
		t.Error("expected error for mappings without scenarios")
	}
}

func TestLoadServiceConfig_MissingWritesSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.yaml")

	_, err := LoadServiceConfig(path)
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), ".sample") {
		t.Errorf("error does not point at sample: %v", err)
	}
	if _, statErr := os.Stat(path + ".sample"); statErr != nil {
		t.Errorf("sample file not written: %v", statErr)
	}
}

func TestServiceConfigValidate(t *testing.T) {
	cfg := &ServiceConfig{BaseURL: "https://stargate.jamacloud.com"}
	problems := cfg.Validate()
	if len(problems) != 3 {
		t.Errorf("want 3 problems, got %v", problems)
	}

	cfg = &ServiceConfig{BaseURL: "https://x", ProjectID: 1, APIID: "a", APISecret: "b"}
	if problems := cfg.Validate(); len(problems) != 0 {
		t.Errorf("want no problems, got %v", problems)
	}
}
