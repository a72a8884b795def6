package callgraph

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// dotNode labels graph nodes with the method signature in DOT output.
type dotNode struct {
	id  int64
	sig string
}

func (n dotNode) ID() int64     { return n.id }
func (n dotNode) DOTID() string { return fmt.Sprintf("%q", n.sig) }

// WriteDOT renders the graph in Graphviz DOT form for external visualization.
func (g *Graph) WriteDOT(w io.Writer, name string) error {
	dg := simple.NewDirectedGraph()

	g.internOnce.Do(g.buildCompact)
	nodes := make([]dotNode, len(g.sigOf))
	for i, sig := range g.sigOf {
		nodes[i] = dotNode{id: int64(i), sig: sig}
		dg.AddNode(nodes[i])
	}
	for sig, edges := range g.adjacency {
		from := nodes[g.vertexOf[sig]]
		for _, e := range edges {
			to := nodes[g.vertexOf[e.Callee.Signature()]]
			if from.id == to.id {
				continue // simple.DirectedGraph rejects self loops
			}
			dg.SetEdge(dg.NewEdge(from, to))
		}
	}

	out, err := dot.Marshal(dg, name, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
