// Command faultgen derives fault-injection test scenarios from base
// scenario documents. It reads abnormal-trigger requirements from the
// requirements workbook (or the requirements service), inserts one fault
// event per trigger x injection-point combination, and writes the results
// under a dated output directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stargate-qa/faultgen/internal/config"
	"github.com/stargate-qa/faultgen/internal/generator"
	"github.com/stargate-qa/faultgen/internal/jama"
	"github.com/stargate-qa/faultgen/internal/progress"
	"github.com/stargate-qa/faultgen/internal/scenario"
	"github.com/stargate-qa/faultgen/internal/schema"
	"github.com/stargate-qa/faultgen/internal/storage/postgres"
	"github.com/stargate-qa/faultgen/internal/trigger"
	"github.com/stargate-qa/faultgen/internal/version"
)

func usage() {
	fmt.Fprintf(os.Stderr, `faultgen %s

Usage:
  faultgen generate -scenario NAME -workbook FILE [flags]
  faultgen validate FILE...
  faultgen fetch [flags]

Run "faultgen <command> -h" for command flags.
`, version.Version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(ctx, os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "fetch":
		err = runFetch(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "faultgen: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		progress.Emit("error", "system.error", err.Error(), nil)
		os.Exit(1)
	}
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		scenarioName = fs.String("scenario", "", "base scenario name from the mappings file (required)")
		workbook     = fs.String("workbook", "", "requirements workbook (.xlsx) with the trigger sheet (required)")
		hierarchy    = fs.String("hierarchy", "", "restrict triggers to requirements under this hierarchy sequence, e.g. 1.2.3")
		mappingsPath = fs.String("mappings", "scenario_mappings.yaml", "scenario mappings file")
		baseDir      = fs.String("base-dir", "base_scenarios", "directory holding base scenario documents")
		outputDir    = fs.String("output-dir", "output", "directory for generated scenarios")
		workers      = fs.Int("workers", 0, "parallel combinations (0 = default)")
		validate     = fs.Bool("validate", true, "check generated scenarios before writing")
		history      = fs.Bool("history", false, "record the run in the postgres history store")
	)
	fs.Parse(args)

	if *scenarioName == "" || *workbook == "" {
		fs.Usage()
		return fmt.Errorf("generate: -scenario and -workbook are required")
	}

	hostname, _ := os.Hostname()
	progress.Emit("info", "system.startup", "faultgen starting", map[string]any{
		"service":  "faultgen",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
	})

	mappings, err := config.LoadMappings(*mappingsPath)
	if err != nil {
		return err
	}

	var triggers []trigger.Description
	if *hierarchy != "" {
		triggers, err = trigger.ParseHierarchy(*workbook, *hierarchy)
	} else {
		triggers, err = trigger.ParseWorkbook(*workbook)
	}
	if err != nil {
		return err
	}
	if len(triggers) == 0 {
		return fmt.Errorf("generate: no triggers found in %s", *workbook)
	}
	progress.Emit("info", "trigger.parsed", "", map[string]any{
		"workbook": *workbook,
		"triggers": len(triggers),
	})
	for _, td := range triggers {
		for _, problem := range td.Validate() {
			progress.Emit("warn", "trigger.invalid", problem, map[string]any{
				"signal_name": td.SignalName,
			})
		}
	}

	opts := generator.Options{
		Mappings:  mappings,
		BaseDir:   *baseDir,
		OutputDir: *outputDir,
		Workers:   *workers,
		Validate:  *validate,
	}
	if *history {
		store, err := postgres.New()
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Store = store
	}

	g, err := generator.New(opts)
	if err != nil {
		return err
	}

	results, outDir, err := g.Run(ctx, *scenarioName, triggers)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	fmt.Printf("generated %d/%d scenarios in %s\n", len(results)-failed, len(results), outDir)
	if failed > 0 {
		return fmt.Errorf("generate: %d combinations failed, see %s", failed, generator.ReportFilename)
	}
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("validate: at least one scenario file is required")
	}

	v, err := schema.NewValidator()
	if err != nil {
		return err
	}

	bad := 0
	for _, path := range fs.Args() {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		if errs := v.ValidateDocument(raw); len(errs) > 0 {
			bad++
			fmt.Printf("%s: does not match the document schema\n", path)
			for _, e := range errs {
				fmt.Printf("  %s\n", e)
			}
			continue
		}

		s, err := scenario.Decode(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if violations := scenario.Validate(s); len(violations) > 0 {
			bad++
			fmt.Printf("%s: %d violations\n", path, len(violations))
			for _, violation := range violations {
				fmt.Printf("  %s\n", violation)
			}
			continue
		}
		fmt.Printf("%s: ok\n", path)
	}
	if bad > 0 {
		return fmt.Errorf("validate: %d of %d files failed", bad, fs.NArg())
	}
	return nil
}

func runFetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	var (
		configPath = fs.String("config", "jama_config.yaml", "requirements-service configuration file")
		sequence   = fs.String("sequence", "", "restrict to a component hierarchy sequence, e.g. 1.2")
		component  = fs.String("component", "", "restrict to a component by exact name")
		depth      = fs.Int("depth", 0, "maximum hierarchy depth (0 = unlimited)")
		rps        = fs.Float64("rps", 4, "request rate limit per second")
		out        = fs.String("out", "", "write items to this JSON file instead of stdout")
	)
	fs.Parse(args)

	cfg, err := config.LoadServiceConfig(*configPath)
	if err != nil {
		return err
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("fetch: %s is incomplete: %s", *configPath, strings.Join(problems, "; "))
	}

	httpClient := http.DefaultClient
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("fetch: bad proxy url: %w", err)
		}
		httpClient = &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}
	}

	client := jama.New(jama.Config{
		BaseURL:           cfg.BaseURL,
		ProjectID:         cfg.ProjectID,
		ClientID:          cfg.APIID,
		ClientSecret:      cfg.APISecret,
		HTTPClient:        httpClient,
		RequestsPerSecond: *rps,
	})

	var items []jama.Item
	if *sequence != "" || *component != "" {
		items, err = client.ItemsByComponent(ctx, *sequence, *component, *depth)
	} else {
		items, err = client.AllItems(ctx, *depth)
	}
	if err != nil {
		return err
	}
	progress.Emit("info", "fetch.progress", "", map[string]any{
		"project_id": cfg.ProjectID,
		"items":      len(items),
	})

	encoded, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if *out != "" {
		if err := os.WriteFile(*out, encoded, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %d items to %s\n", len(items), *out)
		return nil
	}
	fmt.Println(string(encoded))
	return nil
}
