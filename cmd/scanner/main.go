package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"DexTracer/internal/analysis"
	"DexTracer/internal/apk"
	"DexTracer/internal/callgraph"
	"DexTracer/internal/config"
	"DexTracer/internal/model"
	"DexTracer/internal/report"
)

var (
	argSnapshot = flag.String("snapshot", "", "Path to the APK snapshot JSON file")
	argConfig   = flag.String("config", "", "(Optional) Path to a config.yaml. Flags override config values.")
	argRules    = flag.String("rules", "", "(Optional) Path to external rules.yaml file.")
	argDepth    = flag.Int("max-depth", 0, "Maximum call-chain length when searching paths")
	argPackages = flag.String("packages", "", "(Optional) Comma-separated caller-side package filters (e.g., com.app,com.app.ui)")
	argOptimize = flag.Bool("optimize", false, "Restrict the graph to entry-point packages (faster, may miss flows)")
	argSeq      = flag.Bool("sequential", false, "Disable the parallel extraction and graph build")
	argReport   = flag.String("report", "", "(Optional) HTML report output path. Default: output/report_<unix>.html")
	argDot      = flag.String("dot", "", "(Optional) Write the call graph as a DOT file")
	argQuiet    = flag.Bool("quiet", false, "Suppress stage output")
)

func loadConfig() *config.Config {
	cfg := config.Default()
	if *argConfig != "" {
		loaded, err := config.Load(*argConfig)
		if err != nil {
			log.Fatalf("[-] Failed to load config %s: %v", *argConfig, err)
		}
		cfg = loaded
	}

	// Explicitly set flags win over config file values.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "snapshot":
			cfg.Snapshot = *argSnapshot
		case "rules":
			cfg.Rules = *argRules
		case "max-depth":
			cfg.MaxDepth = *argDepth
		case "packages":
			cfg.PackageFilters = strings.Split(*argPackages, ",")
		case "optimize":
			cfg.Optimize = *argOptimize
		case "sequential":
			cfg.Parallel = !*argSeq
		case "report":
			cfg.Report = *argReport
		case "dot":
			cfg.DotFile = *argDot
		}
	})
	if cfg.Snapshot == "" && flag.NArg() > 0 {
		cfg.Snapshot = flag.Arg(0)
	}
	return cfg
}

// Rule priority: 1. explicit path 2. rules.yaml in cwd 3. builtin defaults.
func loadRules(path string, quiet bool) []model.SinkRule {
	if path == "" {
		if _, err := os.Stat("rules.yaml"); err == nil {
			path = "rules.yaml"
		}
	}
	if path != "" {
		if !quiet {
			color.Cyan("[*] Loading rules from: %s", path)
		}
		rules, err := model.LoadRulesFromFile(path)
		if err != nil {
			log.Fatalf("[-] Failed to load rules from %s: %v", path, err)
		}
		return rules
	}
	if !quiet {
		color.Cyan("[*] Using built-in default rules.")
	}
	return model.GetBuiltinRules()
}

func buildProgress(quiet bool) func(done, total int) {
	if quiet {
		return nil
	}
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("[*] Building call graph"),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionShowCount(),
			)
		}
		bar.Set(done)
	}
}

func main() {
	flag.Parse()

	cfg := loadConfig()
	if cfg.Snapshot == "" {
		log.Fatal("Please provide a snapshot.\nExample: -snapshot ./app.snapshot.json")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := apk.ReadSnapshotFile(cfg.Snapshot)
	if err != nil {
		log.Fatalf("[-] Failed to read snapshot: %v", err)
	}
	if !*argQuiet {
		color.Cyan("[*] Loaded snapshot: %s (package %s)", cfg.Snapshot, snap.Manifest.PackageName)
	}

	rules := loadRules(cfg.Rules, *argQuiet)
	if !*argQuiet {
		color.Blue("[*] Loaded %d rules.", len(rules))
	}

	session, err := analysis.NewSession(ctx, snap, analysis.Options{
		Parallel:       cfg.Parallel,
		PackageFilters: cfg.PackageFilters,
		Optimize:       cfg.Optimize,
		Rules:          rules,
		Progress:       buildProgress(*argQuiet),
		Quiet:          *argQuiet,
	})
	if err != nil {
		log.Fatalf("[-] Analysis failed: %v", err)
	}

	if cfg.DotFile != "" {
		if err := writeDOT(session.Graph, cfg.DotFile, snap.Manifest.PackageName); err != nil {
			color.Red("[-] Failed to write DOT file: %v", err)
		} else if !*argQuiet {
			color.Green("[+] Call graph written: %s", cfg.DotFile)
		}
	}

	findings, err := session.FindFlows(ctx, cfg.MaxDepth)
	if err != nil {
		log.Fatalf("[-] Flow search failed: %v", err)
	}

	printFindings(findings)
	if !*argQuiet {
		color.Cyan("[*] %s", session.Summary())
	}

	if len(findings) > 0 {
		if _, err := report.GenerateHTML(findings, snap.Manifest.PackageName, cfg.Report); err != nil {
			log.Fatalf("[-] Failed to generate report: %v", err)
		}
	} else {
		fmt.Println()
		color.Yellow("[*] No flows from entry points to sinks found.")
	}
}

func printFindings(findings []model.Finding) {
	for i, f := range findings {
		line := fmt.Sprintf("[+] #%d [%s/%s] %s -> %s (confidence %.2f, paths %d, min length %d)",
			i+1, f.Category, f.Level, f.EntryPoint, f.SinkMethod, f.Confidence, f.PathCount, f.MinPathLength)
		switch f.Level {
		case "High":
			color.Red(line)
		case "Medium":
			color.Yellow(line)
		default:
			color.White(line)
		}
	}
}

func writeDOT(g *callgraph.Graph, path, name string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return g.WriteDOT(f, name)
}
