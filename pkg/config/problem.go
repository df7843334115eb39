package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/tsplib"
)

// ProblemSpec is the YAML/JSON description of a routing problem. It is
// turned into a tsplib.Problem by Build.
type ProblemSpec struct {
	Name string `yaml:"name" json:"name"`
	// Type is tsp, atsp or m-pdtsp.
	Type string `yaml:"type" json:"type"`
	// Directed overrides the directedness implied by Type.
	Directed *bool  `yaml:"directed,omitempty" json:"directed,omitempty"`
	Comment  string `yaml:"comment,omitempty" json:"comment,omitempty"`

	// Nodes fixes the node ordering. Nodes only mentioned by edges are appended.
	Nodes  []string    `yaml:"nodes,omitempty" json:"nodes,omitempty"`
	Edges  []EdgeSpec  `yaml:"edges,omitempty" json:"edges,omitempty"`
	Matrix [][]float64 `yaml:"matrix,omitempty" json:"matrix,omitempty"`

	// m-PDTSP side tables. Demand is keyed by node ID; absent nodes get a zero vector.
	Demand   map[string][]int `yaml:"demand,omitempty" json:"demand,omitempty"`
	Capacity *int             `yaml:"capacity,omitempty" json:"capacity,omitempty"`
	Depot    string           `yaml:"depot,omitempty" json:"depot,omitempty"`
}

// EdgeSpec is one weighted edge.
type EdgeSpec struct {
	From   string  `yaml:"from" json:"from"`
	To     string  `yaml:"to" json:"to"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// FileName returns "<name>.<type>".
func (s *ProblemSpec) FileName() string {
	return s.Name + "." + strings.ToLower(s.Type)
}

// Validate checks the structure of the description. Type/graph agreement and
// m-PDTSP completeness are checked when the problem is written.
func (s *ProblemSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("problem name cannot be empty")
	}
	if strings.ContainsAny(s.Name, `/\`) || strings.HasPrefix(s.Name, ".") {
		return fmt.Errorf("problem name %q must be a plain file name", s.Name)
	}
	if _, err := tsplib.TypeForPath(s.FileName()); err != nil {
		return fmt.Errorf("invalid problem type %q (must be tsp, atsp, or m-pdtsp)", s.Type)
	}

	if (len(s.Edges) == 0) == (len(s.Matrix) == 0) {
		return fmt.Errorf("exactly one of edges or matrix must be given")
	}
	for i, row := range s.Matrix {
		if len(row) != len(s.Matrix) {
			return fmt.Errorf("matrix row %d has %d columns, want %d", i, len(row), len(s.Matrix))
		}
	}
	if len(s.Matrix) > 0 && len(s.Nodes) > 0 && len(s.Nodes) != len(s.Matrix) {
		return fmt.Errorf("%d nodes given for a %dx%d matrix", len(s.Nodes), len(s.Matrix), len(s.Matrix))
	}
	seen := make(map[string]bool, len(s.Nodes))
	for _, id := range s.Nodes {
		if id == "" {
			return fmt.Errorf("node id cannot be empty")
		}
		if seen[id] {
			return fmt.Errorf("duplicate node id: %s", id)
		}
		seen[id] = true
	}
	for i, e := range s.Edges {
		if e.From == "" || e.To == "" {
			return fmt.Errorf("edge %d: from and to are required", i)
		}
		if e.From == e.To {
			return fmt.Errorf("edge %d: self loop on %s", i, e.From)
		}
	}

	dim := -1
	for id, vec := range s.Demand {
		if dim >= 0 && len(vec) != dim {
			return fmt.Errorf("demand for %s has %d entries, want %d", id, len(vec), dim)
		}
		dim = len(vec)
	}
	if dim == 0 {
		return fmt.Errorf("demand vectors cannot be empty")
	}
	return nil
}

// Build converts the description into a tsplib problem and returns the
// type selected by Type.
func (s *ProblemSpec) Build() (*tsplib.Problem, tsplib.ProblemType, error) {
	if err := s.Validate(); err != nil {
		return nil, 0, err
	}
	typ, _ := tsplib.TypeForPath(s.FileName())
	directed := typ.Directed()
	if s.Directed != nil {
		directed = *s.Directed
	}

	g := tsplib.NewGraph(directed)
	for _, id := range s.Nodes {
		g.AddNode(id)
	}
	if len(s.Matrix) > 0 {
		for i := range s.Matrix {
			if len(s.Nodes) == 0 {
				g.AddNode(fmt.Sprint(i + 1))
			}
		}
		ids := g.Nodes()
		for i, row := range s.Matrix {
			for j, w := range row {
				if i == j || (!directed && j < i) {
					continue
				}
				g.AddEdge(ids[i], ids[j], w)
			}
		}
	}
	for _, e := range s.Edges {
		g.AddEdge(e.From, e.To, e.Weight)
	}

	p := &tsplib.Problem{Graph: g, Order: g.Nodes(), Comment: s.Comment, Capacity: s.Capacity}
	index := make(map[string]int, len(p.Order))
	for i, id := range p.Order {
		index[id] = i
	}

	if len(s.Demand) > 0 {
		var dim int
		unknown := make([]string, 0)
		for id, vec := range s.Demand {
			dim = len(vec)
			if _, ok := index[id]; !ok {
				unknown = append(unknown, id)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, 0, fmt.Errorf("demand references unknown nodes: %s", strings.Join(unknown, ", "))
		}
		p.Demand = make([][]int, len(p.Order))
		for i, id := range p.Order {
			if vec, ok := s.Demand[id]; ok {
				p.Demand[i] = vec
			} else {
				p.Demand[i] = make([]int, dim)
			}
		}
	}
	if s.Depot != "" {
		i, ok := index[s.Depot]
		if !ok {
			return nil, 0, fmt.Errorf("depot references unknown node: %s", s.Depot)
		}
		p.Depot = &i
	}
	return p, typ, nil
}
