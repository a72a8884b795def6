// Package dataflow searches the call graph for paths from entry-point
// lifecycle methods to sink APIs and scores each discovered flow for the
// likelihood that externally controlled Intent data reaches the sink.
package dataflow

import (
	"context"
	"sort"
	"strings"

	"DexTracer/internal/apk"
	"DexTracer/internal/callgraph"
	"DexTracer/internal/dex"
	"DexTracer/internal/entrypoints"
	"DexTracer/internal/model"
)

// Flow aggregates every discovered path between one entry point and one sink.
type Flow struct {
	EntryPoint        string
	ComponentKind     apk.ComponentKind
	SinkMethod        dex.MethodRef
	Paths             []callgraph.Path
	IsDeeplinkHandler bool
	MinPathLength     int
	PathCount         int
}

// ShortestPath returns the shortest discovered path of the flow.
func (f *Flow) ShortestPath() *callgraph.Path {
	var best *callgraph.Path
	for i := range f.Paths {
		if best == nil || f.Paths[i].Length < best.Length {
			best = &f.Paths[i]
		}
	}
	return best
}

// DataFlow is one scored source-to-sink chain.
type DataFlow struct {
	Source     string
	Sink       string
	FlowPath   []string
	Confidence float64
	Level      string
}

// ResourceResolver is an optional collaborator that resolves string-resource
// ids referenced by sink arguments. Absence only lowers scoring precision.
type ResourceResolver interface {
	ResolveString(id uint32) (string, bool)
}

// Intent-extraction calls treated as external data sources.
var intentSourceMethods = []string{
	"getStringExtra",
	"getIntExtra",
	"getBooleanExtra",
	"getData",
	"getDataString",
	"getExtras",
}

// Analyzer runs flow searches over an immutable entry-point set and call
// graph. Safe for concurrent use once constructed.
type Analyzer struct {
	entries  *entrypoints.Analyzer
	graph    *callgraph.Graph
	rules    []model.SinkRule
	resolver ResourceResolver
	table    *dex.ClassTable
}

// NewAnalyzer creates an analyzer with the builtin sink rules.
func NewAnalyzer(entries *entrypoints.Analyzer, graph *callgraph.Graph) *Analyzer {
	return &Analyzer{
		entries: entries,
		graph:   graph,
		rules:   model.GetBuiltinRules(),
	}
}

// SetRules replaces the sink rule set.
func (a *Analyzer) SetRules(rules []model.SinkRule) { a.rules = rules }

// SetResourceResolver attaches the optional resource collaborator.
func (a *Analyzer) SetResourceResolver(r ResourceResolver) { a.resolver = r }

// SetClassTable attaches the class table used to inspect sink-caller bytecode
// for resource-id constants. Only consulted when a resolver is present.
func (a *Analyzer) SetClassTable(t *dex.ClassTable) { a.table = t }

// Rules returns the active sink rule set.
func (a *Analyzer) Rules() []model.SinkRule { return a.rules }

// findSinkMethods resolves sink patterns against the graph's method set,
// deduplicated and sorted so the flow order is stable.
func (a *Analyzer) findSinkMethods(patterns []string) []dex.MethodRef {
	seen := make(map[string]dex.MethodRef)
	for _, p := range patterns {
		for _, m := range a.graph.FindMethods(p) {
			seen[m.Signature()] = m
		}
	}
	sigs := make([]string, 0, len(seen))
	for sig := range seen {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)

	out := make([]dex.MethodRef, len(sigs))
	for i, sig := range sigs {
		out[i] = seen[sig]
	}
	return out
}

// FindFlowsTo searches from every entry point's lifecycle methods to every
// method matching a sink pattern, aggregating all paths per (entry, sink)
// pair. An empty result means no flow within maxDepth, not an error.
func (a *Analyzer) FindFlowsTo(ctx context.Context, sinkPatterns []string, maxDepth int) ([]Flow, error) {
	sinks := a.findSinkMethods(sinkPatterns)
	if len(sinks) == 0 {
		return nil, nil
	}

	var flows []Flow
	for _, ep := range a.entries.EntryPoints() {
		lifecycle := entrypoints.LifecycleMethods(ep.Kind())
		for _, sink := range sinks {
			sinkSig := sink.Signature()

			var paths []callgraph.Path
			for _, method := range lifecycle {
				for _, srcSig := range a.graph.MethodsNamed(ep.ClassName(), method) {
					found, err := a.graph.FindPaths(ctx, srcSig, sinkSig, maxDepth)
					if err != nil {
						return nil, err
					}
					paths = append(paths, found...)
				}
			}
			if len(paths) == 0 {
				continue
			}

			minLen := paths[0].Length
			for _, p := range paths[1:] {
				if p.Length < minLen {
					minLen = p.Length
				}
			}
			flows = append(flows, Flow{
				EntryPoint:        ep.ClassName(),
				ComponentKind:     ep.Kind(),
				SinkMethod:        sink,
				Paths:             paths,
				IsDeeplinkHandler: ep.IsDeeplinkHandler,
				MinPathLength:     minLen,
				PathCount:         len(paths),
			})
		}
	}
	return flows, nil
}

// FindFlowsByCategory runs FindFlowsTo with the rule patterns of a builtin
// or loaded category.
func (a *Analyzer) FindFlowsByCategory(ctx context.Context, category string, maxDepth int) ([]Flow, error) {
	rule, ok := model.RuleByCategory(a.rules, category)
	if !ok {
		return nil, nil
	}
	return a.FindFlowsTo(ctx, rule.Patterns, maxDepth)
}

// FindWebViewFlows finds flows to WebView loading sinks.
func (a *Analyzer) FindWebViewFlows(ctx context.Context, maxDepth int) ([]Flow, error) {
	return a.FindFlowsByCategory(ctx, model.CategoryWebView, maxDepth)
}

// FindFileFlows finds flows to file write sinks.
func (a *Analyzer) FindFileFlows(ctx context.Context, maxDepth int) ([]Flow, error) {
	return a.FindFlowsByCategory(ctx, model.CategoryFile, maxDepth)
}

// FindNetworkFlows finds flows to network connection sinks.
func (a *Analyzer) FindNetworkFlows(ctx context.Context, maxDepth int) ([]Flow, error) {
	return a.FindFlowsByCategory(ctx, model.CategoryNetwork, maxDepth)
}

// FindSQLFlows finds flows to SQL execution sinks.
func (a *Analyzer) FindSQLFlows(ctx context.Context, maxDepth int) ([]Flow, error) {
	return a.FindFlowsByCategory(ctx, model.CategorySQL, maxDepth)
}

// FindDeeplinkFlows restricts a flow search to deeplink-handling entry points.
func (a *Analyzer) FindDeeplinkFlows(ctx context.Context, sinkPatterns []string, maxDepth int) ([]Flow, error) {
	flows, err := a.FindFlowsTo(ctx, sinkPatterns, maxDepth)
	if err != nil {
		return nil, err
	}
	var out []Flow
	for _, f := range flows {
		if f.IsDeeplinkHandler {
			out = append(out, f)
		}
	}
	return out, nil
}

// intentSource returns the first method along the path that extracts Intent
// data, either directly or via one of its immediate callees. Scan order is
// fixed, so repeated runs find the same source.
func (a *Analyzer) intentSource(p *callgraph.Path) (string, bool) {
	for _, m := range p.Methods {
		sig := m.Signature()
		if isIntentExtraction(sig) {
			return sig, true
		}
		for _, e := range a.graph.Callees(sig) {
			calleeSig := e.Callee.Signature()
			if isIntentExtraction(calleeSig) {
				return calleeSig, true
			}
		}
	}
	return "", false
}

func isIntentExtraction(signature string) bool {
	for _, m := range intentSourceMethods {
		if strings.Contains(signature, m) {
			return true
		}
	}
	return false
}

// constantSinkArgument reports whether the caller of the sink loads a string
// resource that resolves to a fixed URL-like constant. A constant argument
// means the sink input is not externally controlled, so the score drops.
// Requires both the resolver and the class table; without them the check is
// skipped and the score stays as computed.
func (a *Analyzer) constantSinkArgument(p *callgraph.Path) bool {
	if a.resolver == nil || a.table == nil || len(p.Methods) < 2 {
		return false
	}
	caller := p.Methods[len(p.Methods)-2]
	cls, ok := a.table.Lookup(caller.ClassName)
	if !ok {
		return false
	}
	for _, m := range cls.MethodsNamed(caller.MethodName) {
		if !m.HasCode() {
			continue
		}
		insns, _ := dex.Decode(m.Code)
		for i := range insns {
			in := &insns[i]
			if !in.IsConst() || !in.HasLit {
				continue
			}
			// App resource ids live in the 0x7f package.
			if in.Literal < 0x7f000000 || in.Literal > 0x7fffffff {
				continue
			}
			if s, ok := a.resolver.ResolveString(uint32(in.Literal)); ok && looksConstantURL(s) {
				return true
			}
		}
	}
	return false
}

func looksConstantURL(s string) bool {
	return strings.Contains(s, "://")
}

// Confidence combines source detection, path length and deeplink status:
// 0.20 base, +0.35 when an Intent-extraction source is on the path, +0.35 /
// +0.25 / +0.15 / +0.05 for path length <=2 / <=4 / <=6 / longer, +0.10 for
// deeplink handlers, capped at 1.0. The High threshold (0.70) is reachable
// only with a detected source.
func confidence(hasSource bool, pathLength int, deeplink bool) float64 {
	score := 0.20
	if hasSource {
		score += 0.35
	}
	switch {
	case pathLength <= 2:
		score += 0.35
	case pathLength <= 4:
		score += 0.25
	case pathLength <= 6:
		score += 0.15
	default:
		score += 0.05
	}
	if deeplink {
		score += 0.10
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Level classifies a confidence score.
func Level(score float64) string {
	switch {
	case score >= 0.7:
		return "High"
	case score >= 0.4:
		return "Medium"
	default:
		return "Low"
	}
}

// AnalyzeDataFlows scores the paths of each flow. A path yields a DataFlow
// when an Intent-extraction source is detected on it, or when the entry point
// is a deeplink handler (the URI itself is external input). Deterministic for
// identical input.
func (a *Analyzer) AnalyzeDataFlows(flows []Flow) []DataFlow {
	var out []DataFlow
	for i := range flows {
		f := &flows[i]
		for j := range f.Paths {
			p := &f.Paths[j]
			source, hasSource := a.intentSource(p)
			if !hasSource {
				if !f.IsDeeplinkHandler {
					continue
				}
				source = "deeplink:" + f.EntryPoint
			}

			score := confidence(hasSource, p.Length, f.IsDeeplinkHandler)
			if a.constantSinkArgument(p) {
				score -= 0.15
				if score < 0.05 {
					score = 0.05
				}
			}
			flowPath := make([]string, len(p.Methods))
			for k, m := range p.Methods {
				flowPath[k] = m.Signature()
			}
			out = append(out, DataFlow{
				Source:     source,
				Sink:       f.SinkMethod.Signature(),
				FlowPath:   flowPath,
				Confidence: score,
				Level:      Level(score),
			})
		}
	}
	return out
}

// Findings converts flows of one rule category into report records. The flow
// confidence is scored from its shortest path.
func (a *Analyzer) Findings(flows []Flow, rule model.SinkRule) []model.Finding {
	var out []model.Finding
	for i := range flows {
		f := &flows[i]

		hasSource := false
		for j := range f.Paths {
			if _, ok := a.intentSource(&f.Paths[j]); ok {
				hasSource = true
				break
			}
		}
		score := confidence(hasSource, f.MinPathLength, f.IsDeeplinkHandler)
		if sp := f.ShortestPath(); sp != nil && a.constantSinkArgument(sp) {
			score -= 0.15
			if score < 0.05 {
				score = 0.05
			}
		}

		chains := make([][]model.Step, len(f.Paths))
		for j := range f.Paths {
			steps := make([]model.Step, len(f.Paths[j].Methods))
			for k, m := range f.Paths[j].Methods {
				steps[k] = model.Step{Signature: m.Signature()}
				if k > 0 {
					steps[k].CallSite = f.Paths[j].Edges[k-1].CallSite
				}
			}
			chains[j] = steps
		}

		out = append(out, model.Finding{
			EntryPoint:    f.EntryPoint,
			ComponentKind: string(f.ComponentKind),
			Deeplink:      f.IsDeeplinkHandler,
			SinkMethod:    f.SinkMethod.Signature(),
			Category:      rule.Category,
			Severity:      rule.Severity,
			Confidence:    score,
			Level:         Level(score),
			PathCount:     f.PathCount,
			MinPathLength: f.MinPathLength,
			Chains:        chains,
		})
	}
	return out
}

// Stats summarizes the analyzer inputs.
type Stats struct {
	EntryPoints      int
	DeeplinkHandlers int
	GraphMethods     int
	GraphEdges       int
}

// GetStats returns aggregate counts for logs and reports.
func (a *Analyzer) GetStats() Stats {
	s := Stats{
		EntryPoints:  len(a.entries.EntryPoints()),
		GraphMethods: a.graph.Stats().TotalMethods,
		GraphEdges:   a.graph.Stats().TotalEdges,
	}
	for _, ep := range a.entries.EntryPoints() {
		if ep.IsDeeplinkHandler {
			s.DeeplinkHandlers++
		}
	}
	return s
}
