// Package callgraph builds and queries the directed method-call graph of one
// package snapshot. Graphs are immutable once built; every query is a read
// and safe for concurrent use.
package callgraph

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yourbasic/graph"

	"DexTracer/internal/dex"
)

// Edge is one caller-to-callee invocation.
type Edge struct {
	Caller   dex.MethodRef
	Callee   dex.MethodRef
	CallSite string
}

// Path is an ordered method sequence from a source to a target. Length counts
// edges, not nodes.
type Path struct {
	Methods []dex.MethodRef
	Edges   []Edge
	Length  int
}

// Source returns the first method of the path.
func (p *Path) Source() dex.MethodRef { return p.Methods[0] }

// Target returns the last method of the path.
func (p *Path) Target() dex.MethodRef { return p.Methods[len(p.Methods)-1] }

// ContainsMethod reports whether any method signature on the path contains
// the substring.
func (p *Path) ContainsMethod(substr string) bool {
	for _, m := range p.Methods {
		if strings.Contains(m.Signature(), substr) {
			return true
		}
	}
	return false
}

func (p *Path) String() string {
	sigs := make([]string, len(p.Methods))
	for i, m := range p.Methods {
		sigs[i] = m.Signature()
	}
	return strings.Join(sigs, " -> ")
}

// Stats holds the counters maintained during construction. AppMethods counts
// the caller methods whose bytecode was processed; TotalMethods additionally
// includes external callees that appear only as edge targets.
type Stats struct {
	TotalMethods int
	TotalEdges   int
	AppMethods   int
}

// Graph is the call graph: forward adjacency plus a reverse index, keyed by
// full method signature so overloads stay distinct.
type Graph struct {
	adjacency map[string][]Edge
	reverse   map[string][]dex.MethodRef
	methods   map[string]dex.MethodRef
	// bySimple maps "class.method" to the signatures of its overloads, the
	// form lifecycle sources are named in.
	bySimple map[string][]string
	stats    Stats

	// Interned integer view for shortest-path queries, built on first use.
	internOnce sync.Once
	vertexOf   map[string]int
	sigOf      []string
	compact    *graph.Immutable
}

func newGraph() *Graph {
	return &Graph{
		adjacency: make(map[string][]Edge),
		reverse:   make(map[string][]dex.MethodRef),
		methods:   make(map[string]dex.MethodRef),
		bySimple:  make(map[string][]string),
	}
}

func (g *Graph) addMethod(ref dex.MethodRef) string {
	sig := ref.Signature()
	if _, ok := g.methods[sig]; !ok {
		g.methods[sig] = ref
		g.stats.TotalMethods++
		key := ref.ClassName + "." + ref.MethodName
		g.bySimple[key] = append(g.bySimple[key], sig)
	}
	return sig
}

func (g *Graph) addEdge(caller, callee dex.MethodRef, callSite string) {
	callerSig := g.addMethod(caller)
	calleeSig := g.addMethod(callee)
	g.adjacency[callerSig] = append(g.adjacency[callerSig], Edge{
		Caller:   caller,
		Callee:   callee,
		CallSite: callSite,
	})
	g.reverse[calleeSig] = append(g.reverse[calleeSig], caller)
	g.stats.TotalEdges++
}

// Stats returns the maintained counters.
func (g *Graph) Stats() Stats { return g.stats }

// Method returns the reference registered under the signature.
func (g *Graph) Method(signature string) (dex.MethodRef, bool) {
	m, ok := g.methods[signature]
	return m, ok
}

// Callees returns the outgoing edges of a method in insertion order.
func (g *Graph) Callees(signature string) []Edge {
	return g.adjacency[signature]
}

// GetCallers returns every method with an edge into the given one.
func (g *Graph) GetCallers(signature string) []dex.MethodRef {
	return g.reverse[signature]
}

// FindMethods returns every method whose full signature contains the
// substring, sorted by signature.
func (g *Graph) FindMethods(substr string) []dex.MethodRef {
	var out []dex.MethodRef
	for sig, ref := range g.methods {
		if strings.Contains(sig, substr) {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Signature() < out[j].Signature()
	})
	return out
}

// MethodsNamed returns the signatures registered for "class.method",
// covering every overload.
func (g *Graph) MethodsNamed(className, methodName string) []string {
	return g.bySimple[className+"."+methodName]
}

// FindPaths returns every simple path from source to target of length at most
// maxDepth, shortest first. Source and target are full signatures. Cycles in
// the graph are handled by the per-path visited check; a method never repeats
// within one path.
func (g *Graph) FindPaths(ctx context.Context, source, target string, maxDepth int) ([]Path, error) {
	if _, ok := g.methods[source]; !ok {
		return nil, nil
	}

	type state struct {
		current string
		methods []dex.MethodRef
		edges   []Edge
	}

	var paths []Path
	queue := []state{{current: source, methods: []dex.MethodRef{g.methods[source]}}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		st := queue[0]
		queue = queue[1:]

		if st.current == target && len(st.edges) > 0 {
			paths = append(paths, Path{
				Methods: st.methods,
				Edges:   st.edges,
				Length:  len(st.edges),
			})
			continue
		}
		if len(st.edges) >= maxDepth {
			continue
		}

		for _, e := range g.adjacency[st.current] {
			calleeSig := e.Callee.Signature()
			if onPath(st.methods, calleeSig) {
				continue
			}
			methods := make([]dex.MethodRef, len(st.methods), len(st.methods)+1)
			copy(methods, st.methods)
			methods = append(methods, e.Callee)
			edges := make([]Edge, len(st.edges), len(st.edges)+1)
			copy(edges, st.edges)
			edges = append(edges, e)
			queue = append(queue, state{current: calleeSig, methods: methods, edges: edges})
		}
	}

	return paths, nil
}

func onPath(methods []dex.MethodRef, sig string) bool {
	for _, m := range methods {
		if m.Signature() == sig {
			return true
		}
	}
	return false
}

// ShortestPath returns one shortest path from source to target, or nil when
// target is unreachable. Backed by an interned integer view of the graph
// built lazily on first call.
func (g *Graph) ShortestPath(source, target string) *Path {
	g.internOnce.Do(g.buildCompact)

	v, okV := g.vertexOf[source]
	w, okW := g.vertexOf[target]
	if !okV || !okW {
		return nil
	}
	vertices, dist := graph.ShortestPath(g.compact, v, w)
	if dist < 0 || len(vertices) < 2 {
		return nil
	}

	p := &Path{Length: len(vertices) - 1}
	for _, vx := range vertices {
		p.Methods = append(p.Methods, g.methods[g.sigOf[vx]])
	}
	for i := 0; i < len(vertices)-1; i++ {
		from, to := g.sigOf[vertices[i]], g.sigOf[vertices[i+1]]
		for _, e := range g.adjacency[from] {
			if e.Callee.Signature() == to {
				p.Edges = append(p.Edges, e)
				break
			}
		}
	}
	return p
}

func (g *Graph) buildCompact() {
	g.sigOf = make([]string, 0, len(g.methods))
	for sig := range g.methods {
		g.sigOf = append(g.sigOf, sig)
	}
	sort.Strings(g.sigOf)

	g.vertexOf = make(map[string]int, len(g.sigOf))
	for i, sig := range g.sigOf {
		g.vertexOf[sig] = i
	}

	m := graph.New(len(g.sigOf))
	for sig, edges := range g.adjacency {
		v := g.vertexOf[sig]
		for _, e := range edges {
			m.AddCost(v, g.vertexOf[e.Callee.Signature()], 1)
		}
	}
	g.compact = graph.Sort(m)
}
