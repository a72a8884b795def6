// Package entrypoints links manifest-declared components to decoded classes
// and classifies externally reachable surfaces (launchers, deeplink handlers).
package entrypoints

import (
	"fmt"
	"sort"

	"DexTracer/internal/apk"
	"DexTracer/internal/dex"
)

// EntryPoint is a manifest component plus its implementing class when one
// exists in the snapshot. Declared-but-stripped components keep ClassFound
// false and stay in the result: the manifest is the source of truth for the
// attack surface, not the bytecode.
type EntryPoint struct {
	Component         apk.Component
	Class             *dex.Class
	ClassFound        bool
	IsLauncher        bool
	IsDeeplinkHandler bool
}

// ClassName returns the component's fully qualified class name.
func (e *EntryPoint) ClassName() string { return e.Component.ClassName }

// Kind returns the component kind.
func (e *EntryPoint) Kind() apk.ComponentKind { return e.Component.Kind }

// DeeplinkPatterns renders the URI patterns of every deeplink-capable filter,
// e.g. "https://example.com/open".
func (e *EntryPoint) DeeplinkPatterns() []string {
	var out []string
	for _, f := range e.Component.IntentFilters {
		if !f.IsDeeplink() {
			continue
		}
		for _, d := range f.Data {
			out = append(out, renderPattern(d))
		}
	}
	return out
}

func renderPattern(d apk.DataFilter) string {
	scheme := d.Scheme
	if scheme == "" {
		scheme = "*"
	}
	host := d.Host
	if host == "" {
		host = "*"
	}
	pattern := scheme + "://" + host
	if d.Port != "" {
		pattern += ":" + d.Port
	}
	switch {
	case d.Path != "":
		pattern += d.Path
	case d.PathPrefix != "":
		pattern += d.PathPrefix + "*"
	case d.PathPattern != "":
		pattern += d.PathPattern
	}
	return pattern
}

// Stats summarizes an analyzed manifest.
type Stats struct {
	Total      int
	ByKind     map[apk.ComponentKind]int
	Exported   int
	Launchers  int
	Deeplinks  int
	ClassFound int
}

// Analyzer links components to classes once at construction; all queries
// afterwards are reads over the fixed result.
type Analyzer struct {
	entryPoints []EntryPoint
	byClass     map[string]int
	stats       Stats
}

// NewAnalyzer analyzes the manifest against the class table. Class binding is
// a lookup by fully qualified name; components are kept in declaration order.
func NewAnalyzer(manifest *apk.Manifest, table *dex.ClassTable) *Analyzer {
	a := &Analyzer{
		byClass: make(map[string]int, len(manifest.Components)),
		stats:   Stats{ByKind: make(map[apk.ComponentKind]int)},
	}

	for _, comp := range manifest.Components {
		ep := EntryPoint{Component: comp}
		if cls, ok := table.Lookup(comp.ClassName); ok {
			ep.Class = cls
			ep.ClassFound = true
		}
		for _, f := range comp.IntentFilters {
			if f.IsLauncher() {
				ep.IsLauncher = true
			}
			if f.IsDeeplink() {
				ep.IsDeeplinkHandler = true
			}
		}

		a.entryPoints = append(a.entryPoints, ep)
		if _, dup := a.byClass[comp.ClassName]; !dup {
			a.byClass[comp.ClassName] = len(a.entryPoints) - 1
		}

		a.stats.Total++
		a.stats.ByKind[comp.Kind]++
		if comp.Exported {
			a.stats.Exported++
		}
		if ep.IsLauncher {
			a.stats.Launchers++
		}
		if ep.IsDeeplinkHandler {
			a.stats.Deeplinks++
		}
		if ep.ClassFound {
			a.stats.ClassFound++
		}
	}

	return a
}

// EntryPoints returns every entry point in manifest declaration order.
func (a *Analyzer) EntryPoints() []EntryPoint { return a.entryPoints }

// DeeplinkHandlers returns entry points that both accept external URIs and
// have an implementing class in the snapshot.
func (a *Analyzer) DeeplinkHandlers() []EntryPoint {
	var out []EntryPoint
	for _, ep := range a.entryPoints {
		if ep.IsDeeplinkHandler && ep.ClassFound {
			out = append(out, ep)
		}
	}
	return out
}

// EntryPointWithClass returns the entry point declared for the class name
// together with its bound class. The second return is false when no component
// declares that class or the class is missing from the snapshot.
func (a *Analyzer) EntryPointWithClass(className string) (*EntryPoint, bool) {
	i, ok := a.byClass[className]
	if !ok {
		return nil, false
	}
	ep := &a.entryPoints[i]
	if !ep.ClassFound {
		return ep, false
	}
	return ep, true
}

// Stats returns the aggregate counts computed at construction.
func (a *Analyzer) Stats() Stats { return a.stats }

// PackagePrefixes derives the set of package prefixes covering every bound
// entry-point class, sorted and deduplicated. Used by the optimized analysis
// mode to narrow graph construction.
func (a *Analyzer) PackagePrefixes() []string {
	seen := make(map[string]bool)
	for _, ep := range a.entryPoints {
		if !ep.ClassFound {
			continue
		}
		if pkg := ep.Class.PackageName; pkg != "" && !seen[pkg] {
			seen[pkg] = true
		}
	}
	out := make([]string, 0, len(seen))
	for pkg := range seen {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

// LifecycleMethods returns the externally invoked lifecycle method names for
// a component kind. These are the search sources of the flow analysis.
func LifecycleMethods(kind apk.ComponentKind) []string {
	switch kind {
	case apk.KindActivity:
		return []string{"onCreate", "onStart", "onResume", "onNewIntent", "onActivityResult"}
	case apk.KindService:
		return []string{"onCreate", "onBind"}
	case apk.KindReceiver:
		return []string{"onReceive"}
	case apk.KindProvider:
		return []string{"onCreate"}
	default:
		return nil
	}
}

// Describe renders a one-line summary for logs and reports.
func (e *EntryPoint) Describe() string {
	state := "class missing"
	if e.ClassFound {
		state = "class found"
	}
	extra := ""
	if e.IsLauncher {
		extra += ", launcher"
	}
	if e.IsDeeplinkHandler {
		extra += ", deeplink"
	}
	return fmt.Sprintf("%s %s (%s%s)", e.Component.Kind, e.Component.ClassName, state, extra)
}
