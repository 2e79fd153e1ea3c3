// Package generator runs the batch: for every trigger × injection-point
// combination it derives one fault scenario from the base document,
// writes it under a dated directory, and summarizes the run in a text
// report. One bad combination never aborts the rest.
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stargate-qa/faultgen/internal/config"
	"github.com/stargate-qa/faultgen/internal/progress"
	"github.com/stargate-qa/faultgen/internal/scenario"
	"github.com/stargate-qa/faultgen/internal/schema"
	"github.com/stargate-qa/faultgen/internal/storage/postgres"
	"github.com/stargate-qa/faultgen/internal/trigger"
)

// ReportFilename is written into every run's output directory.
const ReportFilename = "generation_report.txt"

const defaultWorkers = 4

// ResultStore receives one record per combination. Implemented by the
// postgres client; nil disables history.
type ResultStore interface {
	Append(postgres.RunRecord) error
}

// Options configures a run.
type Options struct {
	Mappings *config.Mappings
	// BaseDir holds one directory per base scenario, each containing the
	// mapping's base_file.
	BaseDir   string
	OutputDir string
	// Workers bounds the parallel combinations; 0 means a small default.
	Workers int
	// Validate runs the post-mutation checks and fails combinations
	// whose result carries violations.
	Validate bool
	Store    ResultStore
	// Now is injectable for deterministic output naming in tests.
	Now func() time.Time
}

// Result is the outcome of one trigger × injection-point combination.
type Result struct {
	SignalName     string
	InjectionPoint string
	OutputFile     string
	Violations     []scenario.Violation
	Err            error
}

// Generator executes batch runs against one mappings document.
type Generator struct {
	opts   Options
	schema *schema.Validator
	runID  string
}

// New builds a generator. The embedded document schema is compiled once
// here.
func New(opts Options) (*Generator, error) {
	if opts.Mappings == nil {
		return nil, fmt.Errorf("generator: mappings are required")
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	v, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}

	return &Generator{
		opts:   opts,
		schema: v,
		runID:  uuid.NewString(),
	}, nil
}

// RunID identifies this generator's runs in the history store.
func (g *Generator) RunID() string {
	return g.runID
}

type combination struct {
	trigger trigger.Description
	label   string
	point   config.InjectionPoint
	delay   float64
}

// Run generates every combination for the named base scenario and
// returns the per-combination results in deterministic order together
// with the output directory. Setup problems (unknown scenario, unreadable
// or malformed base file) are returned as an error; per-combination
// failures live in the results.
func (g *Generator) Run(ctx context.Context, baseScenarioName string, triggers []trigger.Description) ([]Result, string, error) {
	sm, err := g.opts.Mappings.Scenario(baseScenarioName)
	if err != nil {
		return nil, "", err
	}

	base, err := g.loadBase(baseScenarioName, sm)
	if err != nil {
		return nil, "", err
	}

	combos := g.combinations(sm, triggers)

	date := g.opts.Now().Format("2006-01-02")
	outDir := filepath.Join(g.opts.OutputDir, fmt.Sprintf("%s_%s", date, baseScenarioName))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create output dir: %w", err)
	}

	progress.Emit("info", "generation.started", "", map[string]any{
		"run_id":          g.runID,
		"base_scenario":   baseScenarioName,
		"triggers":        len(triggers),
		"injection_points": len(sm.InjectionPoints),
		"combinations":    len(combos),
	})

	results := make([]Result, len(combos))

	// The base scenario is shared read-only: every combination deep-copies
	// before mutating, so the workers need no locks.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for i, combo := range combos {
		i, combo := i, combo
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				results[i] = Result{
					SignalName:     combo.trigger.SignalName,
					InjectionPoint: combo.label,
					Err:            err,
				}
				return nil
			}
			results[i] = g.generateOne(base, baseScenarioName, sm, combo, date, outDir)
			return nil
		})
	}
	eg.Wait()

	g.record(baseScenarioName, results)

	if err := g.writeReport(outDir, baseScenarioName, sm, triggers, results); err != nil {
		progress.Emit("error", "system.error", "report write failed", map[string]any{"error": err.Error()})
	} else {
		progress.Emit("info", "report.written", "", map[string]any{
			"path": filepath.Join(outDir, ReportFilename),
		})
	}

	generated := 0
	for _, r := range results {
		if r.Err == nil {
			generated++
		}
	}
	progress.Emit("info", "generation.completed", "", map[string]any{
		"run_id":    g.runID,
		"generated": generated,
		"failed":    len(results) - generated,
	})

	return results, outDir, nil
}

func (g *Generator) loadBase(name string, sm config.ScenarioMapping) (*scenario.Scenario, error) {
	path := filepath.Join(g.opts.BaseDir, name, sm.BaseFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read base scenario: %w", err)
	}

	if errs := g.schema.ValidateDocument(raw); len(errs) > 0 {
		return nil, fmt.Errorf("base scenario %s does not match the document schema: %s", path, errs[0])
	}

	return scenario.Decode(raw)
}

// combinations expands triggers × injection points in deterministic
// order: triggers as given, labels sorted.
func (g *Generator) combinations(sm config.ScenarioMapping, triggers []trigger.Description) []combination {
	labels := make([]string, 0, len(sm.InjectionPoints))
	for label := range sm.InjectionPoints {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	combos := make([]combination, 0, len(triggers)*len(labels))
	for _, td := range triggers {
		for _, label := range labels {
			point := sm.InjectionPoints[label]
			combos = append(combos, combination{
				trigger: td,
				label:   label,
				point:   point,
				delay:   g.opts.Mappings.EffectiveDelay(label, point),
			})
		}
	}
	return combos
}

func (g *Generator) generateOne(base *scenario.Scenario, baseName string, sm config.ScenarioMapping, combo combination, date, outDir string) Result {
	res := Result{
		SignalName:     combo.trigger.SignalName,
		InjectionPoint: combo.label,
	}

	out, err := scenario.InsertFaultEvent(base, sm.ActorName(), combo.trigger.Fault(), combo.point.AfterEvent, combo.delay)
	if err != nil {
		res.Err = err
		progress.Emit("error", "scenario.failed", err.Error(), map[string]any{
			"signal_name":     combo.trigger.SignalName,
			"injection_point": combo.label,
		})
		return res
	}

	out.Summary = fmt.Sprintf("%s_%s_%s", base.Summary, combo.trigger.SignalName, combo.label)
	out.Variation = "fault_" + combo.label

	if g.opts.Validate {
		res.Violations = scenario.Validate(out)
		if len(res.Violations) > 0 {
			res.Err = fmt.Errorf("generated scenario has %d violations", len(res.Violations))
			progress.Emit("error", "scenario.failed", res.Err.Error(), map[string]any{
				"signal_name":     combo.trigger.SignalName,
				"injection_point": combo.label,
			})
			return res
		}
		progress.Emit("info", "scenario.validated", "", map[string]any{
			"signal_name":     combo.trigger.SignalName,
			"injection_point": combo.label,
		})
	}

	encoded, err := out.Encode()
	if err != nil {
		res.Err = err
		return res
	}

	filename := fmt.Sprintf("%s_%s_%s_%s.json", date, baseName, combo.trigger.SignalName, combo.label)
	path := filepath.Join(outDir, filename)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		res.Err = fmt.Errorf("write scenario: %w", err)
		return res
	}

	res.OutputFile = path
	progress.Emit("info", "scenario.generated", "", map[string]any{
		"signal_name":     combo.trigger.SignalName,
		"injection_point": combo.label,
		"output_file":     filename,
	})
	return res
}

// record appends run history; store failures are reported but do not
// affect the results.
func (g *Generator) record(baseName string, results []Result) {
	if g.opts.Store == nil {
		return
	}
	for _, r := range results {
		rec := postgres.RunRecord{
			RunID:          g.runID,
			Timestamp:      g.opts.Now(),
			BaseScenario:   baseName,
			SignalName:     r.SignalName,
			InjectionPoint: r.InjectionPoint,
			OutputFile:     r.OutputFile,
			Status:         postgres.StatusGenerated,
		}
		if r.Err != nil {
			rec.Status = postgres.StatusFailed
			rec.Error = r.Err.Error()
		}
		if err := g.opts.Store.Append(rec); err != nil {
			progress.Emit("error", "system.error", "run record append failed", map[string]any{"error": err.Error()})
			return
		}
	}
	progress.Emit("info", "run.recorded", "", map[string]any{
		"run_id":  g.runID,
		"records": len(results),
	})
}
