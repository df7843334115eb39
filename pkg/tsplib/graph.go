package tsplib

import "fmt"

// Graph is a weighted graph with string node IDs kept in insertion order.
// For undirected graphs every edge is stored in both directions.
type Graph struct {
	directed bool
	nodes    []string
	index    map[string]int
	weights  map[[2]int]float64
}

// NewGraph constructs an empty graph.
func NewGraph(directed bool) *Graph {
	return &Graph{
		directed: directed,
		index:    make(map[string]int),
		weights:  make(map[[2]int]float64),
	}
}

// NewGraphFromMatrix builds a complete graph over nodes "1".."n" from a square
// weight matrix. Undirected graphs take weights from the upper triangle.
func NewGraphFromMatrix(directed bool, m [][]float64) (*Graph, error) {
	g := NewGraph(directed)
	for i := range m {
		if len(m[i]) != len(m) {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidProblem, i, len(m[i]), len(m))
		}
		g.AddNode(fmt.Sprint(i + 1))
	}
	for i := range m {
		for j := range m[i] {
			if i == j || (!directed && j < i) {
				continue
			}
			g.AddEdge(g.nodes[i], g.nodes[j], m[i][j])
		}
	}
	return g, nil
}

// Directed reports whether edges have orientation.
func (g *Graph) Directed() bool {
	return g.directed
}

// AddNode adds id if absent and returns its 0-based position.
func (g *Graph) AddNode(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
	return len(g.nodes) - 1
}

// AddEdge sets the weight of from→to, adding missing endpoints.
// A repeated edge overwrites the previous weight.
func (g *Graph) AddEdge(from, to string, weight float64) {
	u, v := g.AddNode(from), g.AddNode(to)
	g.weights[[2]int{u, v}] = weight
	if !g.directed {
		g.weights[[2]int{v, u}] = weight
	}
}

// Weight returns the weight of from→to.
func (g *Graph) Weight(from, to string) (float64, bool) {
	u, ok := g.index[from]
	if !ok {
		return 0, false
	}
	v, ok := g.index[to]
	if !ok {
		return 0, false
	}
	w, ok := g.weights[[2]int{u, v}]
	return w, ok
}

// HasNode reports whether id is part of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns the node IDs in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}
