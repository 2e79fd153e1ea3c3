package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stargate-qa/faultgen/internal/config"
	"github.com/stargate-qa/faultgen/internal/trigger"
)

// writeReport produces the plain-text run summary next to the generated
// scenarios.
func (g *Generator) writeReport(outDir, baseName string, sm config.ScenarioMapping, triggers []trigger.Description, results []Result) error {
	var b strings.Builder
	rule := strings.Repeat("=", 50)

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Fault scenario generation report\n")
	fmt.Fprintf(&b, "%s\n\n", rule)

	fmt.Fprintf(&b, "Run ID:       %s\n", g.runID)
	fmt.Fprintf(&b, "Generated at: %s\n", g.opts.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Base:         %s\n", baseName)
	fmt.Fprintf(&b, "Output dir:   %s\n\n", outDir)

	generated := make([]Result, 0, len(results))
	failed := make([]Result, 0)
	for _, r := range results {
		if r.Err == nil {
			generated = append(generated, r)
		} else {
			failed = append(failed, r)
		}
	}

	fmt.Fprintf(&b, "[Statistics]\n")
	fmt.Fprintf(&b, "- triggers:            %d\n", len(triggers))
	fmt.Fprintf(&b, "- injection points:    %d\n", len(sm.InjectionPoints))
	fmt.Fprintf(&b, "- scenarios generated: %d\n", len(generated))
	fmt.Fprintf(&b, "- scenarios expected:  %d\n\n", len(results))

	fmt.Fprintf(&b, "[Triggers]\n")
	for _, td := range triggers {
		id := td.JamaID
		if id == "" {
			id = "N/A"
		}
		fmt.Fprintf(&b, "- %s: requirement=%s, value=%v\n", td.SignalName, id, td.Value)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "[Injection points]\n")
	labels := make([]string, 0, len(sm.InjectionPoints))
	for label := range sm.InjectionPoints {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&b, "- %s: after event %d\n", label, sm.InjectionPoints[label].AfterEvent)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "[Generated files]\n")
	for _, r := range generated {
		fmt.Fprintf(&b, "- %s\n", filepath.Base(r.OutputFile))
	}

	if len(failed) > 0 {
		fmt.Fprintf(&b, "\n[Failures]\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "- %s x %s: %v\n", r.SignalName, r.InjectionPoint, r.Err)
		}
	}

	return os.WriteFile(filepath.Join(outDir, ReportFilename), []byte(b.String()), 0o644)
}
