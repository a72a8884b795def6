package callgraph

import (
	"runtime"
	"strings"
	"sync"

	"DexTracer/internal/apk"
	"DexTracer/internal/dex"
)

// Options controls graph construction.
type Options struct {
	// PackageFilter restricts processing to CALLER methods whose declaring
	// class lives under one of the prefixes. Callees outside the filter stay
	// in the graph as terminal nodes, so cost is bounded by app-code size
	// without dropping the edges that leave it. Empty means no filter.
	PackageFilter []string

	// Progress, when set, is called after each class is merged.
	Progress func(done, total int)
}

// Build constructs the call graph sequentially: for every method with
// bytecode in a class passing the filter, decode it, resolve each invoke
// target and add an edge. Per-method decode failures become diagnostics and
// never abort the build.
func Build(snap *apk.Snapshot, table *dex.ClassTable, opts Options) (*Graph, []apk.Diagnostic, error) {
	return build(snap, table, opts, false)
}

// BuildParallel is functionally identical to Build: classes are processed on
// a worker pool, each result lands in its class-order slot, and the merge
// walks the slots in order, so the edge sequence matches the sequential one.
func BuildParallel(snap *apk.Snapshot, table *dex.ClassTable, opts Options) (*Graph, []apk.Diagnostic, error) {
	return build(snap, table, opts, true)
}

func build(snap *apk.Snapshot, table *dex.ClassTable, opts Options, parallel bool) (*Graph, []apk.Diagnostic, error) {
	if snap == nil || len(snap.Dex) == 0 {
		return nil, nil, &apk.Error{Kind: apk.ErrInvalidSnapshot, Detail: "snapshot contains no dex files"}
	}

	resolvers := make([]*dex.Resolver, len(snap.Dex))
	for i := range snap.Dex {
		resolvers[i] = dex.NewResolver(&snap.Dex[i])
	}

	var candidates []*dex.Class
	for _, c := range table.All() {
		if matchesFilter(c.PackageName, opts.PackageFilter) {
			candidates = append(candidates, c)
		}
	}

	results := make([]classResult, len(candidates))
	if parallel && len(candidates) > 1 {
		jobs := make(chan int, len(candidates))
		for i := range candidates {
			jobs <- i
		}
		close(jobs)

		workers := runtime.NumCPU()
		if workers > len(candidates) {
			workers = len(candidates)
		}
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = processClass(resolvers, candidates[i])
				}
			}()
		}
		wg.Wait()
	} else {
		for i, c := range candidates {
			results[i] = processClass(resolvers, c)
		}
	}

	g := newGraph()
	var diags []apk.Diagnostic
	for i := range results {
		for _, node := range results[i].nodes {
			g.addMethod(node)
			g.stats.AppMethods++
		}
		for _, e := range results[i].edges {
			g.addEdge(e.Caller, e.Callee, e.CallSite)
		}
		diags = append(diags, results[i].diags...)
		if opts.Progress != nil {
			opts.Progress(i+1, len(results))
		}
	}
	return g, diags, nil
}

type classResult struct {
	nodes []dex.MethodRef
	edges []Edge
	diags []apk.Diagnostic
}

// processClass decodes every concrete method of one class and collects its
// outgoing edges. Runs on worker goroutines: it only reads the immutable
// arenas and writes its own result.
func processClass(resolvers []*dex.Resolver, c *dex.Class) classResult {
	var res classResult
	for i := range c.Methods {
		m := &c.Methods[i]
		if !m.HasCode() {
			continue
		}
		caller := m.Ref()
		res.nodes = append(res.nodes, caller)

		insns, err := dex.Decode(m.Code)
		if err != nil {
			res.diags = append(res.diags, apk.Diagnostic{
				Kind:   apk.ErrMethodDecode,
				Class:  c.ClassName,
				Method: m.Name,
				Reason: err.Error(),
			})
			// Instructions decoded before the failure still carry edges.
		}

		for j := range insns {
			in := &insns[j]
			if in.Unknown {
				res.diags = append(res.diags, apk.Diagnostic{
					Kind:   apk.ErrUnknownOpcode,
					Class:  c.ClassName,
					Method: m.Name,
					Reason: in.Raw,
				})
				continue
			}
			if !in.IsInvoke() || in.MethodIdx < 0 {
				continue
			}
			callee, err := resolvers[m.DexIndex].Method(in.MethodIdx)
			if err != nil {
				res.diags = append(res.diags, apk.Diagnostic{
					Kind:   apk.ErrNotFound,
					Class:  c.ClassName,
					Method: m.Name,
					Reason: err.Error(),
				})
				continue
			}
			res.edges = append(res.edges, Edge{
				Caller:   caller,
				Callee:   callee,
				CallSite: in.Raw,
			})
		}
	}
	return res
}

func matchesFilter(pkg string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if strings.HasPrefix(pkg, f) {
			return true
		}
	}
	return false
}
