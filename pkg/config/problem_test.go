package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/tsplib"
)

func TestProblemSpecBuildEdges(t *testing.T) {
	spec, err := LoadProblem("../../config/problems/square.yaml")
	require.NoError(t, err)
	p, typ, err := spec.Build()
	require.NoError(t, err)

	assert.Equal(t, tsplib.TypeTSP, typ)
	assert.False(t, p.Graph.Directed(), "tsp graphs are undirected")
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Order)
	w, ok := p.Graph.Weight("c", "a")
	require.True(t, ok)
	assert.Equal(t, 1.41, w, "mirrored weight")
}

func TestProblemSpecBuildMatrix(t *testing.T) {
	spec, err := LoadProblem("../../config/problems/pickup.yaml")
	require.NoError(t, err)
	p, typ, err := spec.Build()
	require.NoError(t, err)

	assert.Equal(t, tsplib.TypeMPDTSP, typ)
	assert.True(t, p.Graph.Directed(), "m-pdtsp graphs are directed")
	require.Equal(t, 4, p.Graph.Len())
	w, ok := p.Graph.Weight("3", "4")
	require.True(t, ok)
	assert.Equal(t, 1.0, w)
	require.NotNil(t, p.Depot)
	assert.Equal(t, 0, *p.Depot)
	require.Len(t, p.Demand, 4)
	require.Len(t, p.Demand[0], 2)
	assert.Equal(t, 0, p.Demand[0][0])
	assert.Equal(t, -2, p.Demand[2][0])
	require.NotNil(t, p.Capacity)
	assert.Equal(t, 5, *p.Capacity)

	path := filepath.Join(t.TempDir(), spec.FileName())
	_, err = tsplib.WriteProblem(path, p, 0)
	require.NoError(t, err)
	pf, err := tsplib.ReadProblem(path)
	require.NoError(t, err)
	assert.EqualValues(t, 6, pf.Weights[1][3])
}

func TestProblemSpecDirectedOverride(t *testing.T) {
	directed := false
	spec := &ProblemSpec{
		Name:     "flat",
		Type:     "atsp",
		Directed: &directed,
		Matrix:   [][]float64{{0, 1}, {1, 0}},
	}
	p, _, err := spec.Build()
	require.NoError(t, err)
	_, err = tsplib.WriteProblem(filepath.Join(t.TempDir(), spec.FileName()), p, 0)
	assert.ErrorIs(t, err, tsplib.ErrFormatMismatch, "undirected atsp")
}

func TestProblemSpecMissingDemand(t *testing.T) {
	spec := &ProblemSpec{
		Name:   "pd",
		Type:   "m-pdtsp",
		Matrix: [][]float64{{0, 1}, {1, 0}},
	}
	p, _, err := spec.Build()
	require.NoError(t, err)
	_, err = tsplib.WriteProblem(filepath.Join(t.TempDir(), spec.FileName()), p, 0)
	assert.ErrorIs(t, err, tsplib.ErrMissingArgument)
}

func TestProblemSpecValidate(t *testing.T) {
	square := [][]float64{{0, 1}, {1, 0}}
	tests := []struct {
		name string
		spec ProblemSpec
	}{
		{"empty name", ProblemSpec{Type: "tsp", Matrix: square}},
		{"path name", ProblemSpec{Name: "../x", Type: "tsp", Matrix: square}},
		{"bad type", ProblemSpec{Name: "x", Type: "cvrp", Matrix: square}},
		{"no graph", ProblemSpec{Name: "x", Type: "tsp"}},
		{"both graphs", ProblemSpec{Name: "x", Type: "tsp", Matrix: square, Edges: []EdgeSpec{{From: "1", To: "2"}}}},
		{"ragged matrix", ProblemSpec{Name: "x", Type: "tsp", Matrix: [][]float64{{0, 1}, {1}}}},
		{"node count", ProblemSpec{Name: "x", Type: "tsp", Matrix: square, Nodes: []string{"a"}}},
		{"duplicate node", ProblemSpec{Name: "x", Type: "tsp", Nodes: []string{"a", "a"}, Edges: []EdgeSpec{{From: "a", To: "b"}}}},
		{"self loop", ProblemSpec{Name: "x", Type: "tsp", Edges: []EdgeSpec{{From: "a", To: "a"}}}},
		{"open edge", ProblemSpec{Name: "x", Type: "tsp", Edges: []EdgeSpec{{From: "a"}}}},
		{"demand width", ProblemSpec{Name: "x", Type: "m-pdtsp", Matrix: square, Demand: map[string][]int{"1": {1}, "2": {1, 2}}}},
		{"empty demand", ProblemSpec{Name: "x", Type: "m-pdtsp", Matrix: square, Demand: map[string][]int{"1": {}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.spec.Validate())
		})
	}
}

func TestProblemSpecUnknownReferences(t *testing.T) {
	square := [][]float64{{0, 1}, {1, 0}}
	spec := &ProblemSpec{Name: "x", Type: "m-pdtsp", Matrix: square, Demand: map[string][]int{"9": {1}}}
	_, _, err := spec.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "9", "unknown demand node")

	spec = &ProblemSpec{Name: "x", Type: "m-pdtsp", Matrix: square, Depot: "z"}
	_, _, err = spec.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depot")
}
