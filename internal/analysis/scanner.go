// Package analysis orchestrates the full pipeline over one snapshot:
// extraction, entry-point linking, graph construction and flow search.
package analysis

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"DexTracer/internal/apk"
	"DexTracer/internal/callgraph"
	"DexTracer/internal/dataflow"
	"DexTracer/internal/dex"
	"DexTracer/internal/entrypoints"
	"DexTracer/internal/model"
)

// Options configures a scan session.
type Options struct {
	// Parallel runs extraction and graph construction on a worker pool.
	Parallel bool
	// PackageFilters restricts caller-side graph construction.
	PackageFilters []string
	// Optimize derives package filters from entry-point class prefixes
	// before graph construction. Flows through library packages outside
	// those prefixes become invisible; the trade-off is announced on the
	// terminal, never applied silently.
	Optimize bool
	// Rules overrides the builtin sink rule set.
	Rules []model.SinkRule
	// Progress, when set, receives per-class graph build progress.
	Progress func(done, total int)
	// Quiet suppresses the stage lines.
	Quiet bool
}

// Session holds the immutable analysis state built from one snapshot. All
// query methods are reads and safe for concurrent use.
type Session struct {
	Snapshot    *apk.Snapshot
	Classes     []dex.Class
	Table       *dex.ClassTable
	EntryPoints *entrypoints.Analyzer
	Graph       *callgraph.Graph
	Flows       *dataflow.Analyzer
	Diagnostics []apk.Diagnostic
}

// NewSession runs the pipeline front to back: extract classes, link entry
// points, build the call graph, prepare the flow analyzer. Per-unit failures
// accumulate in Diagnostics; only structural errors abort.
func NewSession(ctx context.Context, snap *apk.Snapshot, opts Options) (*Session, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &Session{Snapshot: snap}
	stage := func(format string, args ...interface{}) {
		if !opts.Quiet {
			color.Cyan("[*] "+format, args...)
		}
	}

	stage("Extracting classes from %d dex file(s)...", len(snap.Dex))
	classes, diags, err := dex.ExtractClasses(snap, opts.Parallel)
	if err != nil {
		return nil, err
	}
	s.Classes = classes
	s.Diagnostics = append(s.Diagnostics, diags...)
	s.Table = dex.NewClassTable(s.Classes)
	stage("Extracted %d classes.", s.Table.Len())

	stage("Linking manifest components...")
	s.EntryPoints = entrypoints.NewAnalyzer(&snap.Manifest, s.Table)
	epStats := s.EntryPoints.Stats()
	stage("Linked %d entry point(s), %d deeplink handler(s).", epStats.Total, epStats.Deeplinks)

	filters := opts.PackageFilters
	if opts.Optimize {
		filters = s.EntryPoints.PackagePrefixes()
		if !opts.Quiet {
			color.Yellow("[!] Optimized mode: graph restricted to entry-point packages %v. Flows through other packages will not be found.", filters)
		}
	}

	stage("Building call graph...")
	buildOpts := callgraph.Options{PackageFilter: filters, Progress: opts.Progress}
	var g *callgraph.Graph
	if opts.Parallel {
		g, diags, err = callgraph.BuildParallel(snap, s.Table, buildOpts)
	} else {
		g, diags, err = callgraph.Build(snap, s.Table, buildOpts)
	}
	if err != nil {
		return nil, err
	}
	s.Graph = g
	s.Diagnostics = append(s.Diagnostics, diags...)
	gStats := g.Stats()
	stage("Call graph: %d methods, %d edges.", gStats.TotalMethods, gStats.TotalEdges)

	s.Flows = dataflow.NewAnalyzer(s.EntryPoints, s.Graph)
	s.Flows.SetClassTable(s.Table)
	if len(opts.Rules) > 0 {
		s.Flows.SetRules(opts.Rules)
	}
	return s, nil
}

// SetResourceResolver attaches the optional resource collaborator to the
// flow analyzer.
func (s *Session) SetResourceResolver(r dataflow.ResourceResolver) {
	s.Flows.SetResourceResolver(r)
}

// FindFlows searches every sink category of the active rule set and returns
// the findings per category.
func (s *Session) FindFlows(ctx context.Context, maxDepth int) ([]model.Finding, error) {
	var findings []model.Finding
	for _, rule := range s.Flows.Rules() {
		flows, err := s.Flows.FindFlowsByCategory(ctx, rule.Category, maxDepth)
		if err != nil {
			return nil, err
		}
		findings = append(findings, s.Flows.Findings(flows, rule)...)
	}
	return findings, nil
}

// Summary renders a short terminal summary of the session.
func (s *Session) Summary() string {
	g := s.Graph.Stats()
	ep := s.EntryPoints.Stats()
	return fmt.Sprintf("classes=%d entry_points=%d deeplinks=%d methods=%d edges=%d diagnostics=%d",
		s.Table.Len(), ep.Total, ep.Deeplinks, g.TotalMethods, g.TotalEdges, len(s.Diagnostics))
}
