package tsplib

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ProblemType is the TSPLIB TYPE of a problem file.
type ProblemType int

const (
	TypeTSP ProblemType = iota
	TypeATSP
	TypeMPDTSP
)

// DefaultUnreachable is written for node pairs that have no edge.
const DefaultUnreachable int64 = 100000000

var extensions = map[string]ProblemType{
	".tsp":     TypeTSP,
	".atsp":    TypeATSP,
	".m-pdtsp": TypeMPDTSP,
}

func (t ProblemType) String() string {
	switch t {
	case TypeTSP:
		return "TSP"
	case TypeATSP:
		return "ATSP"
	case TypeMPDTSP:
		return "M-PDTSP"
	default:
		return fmt.Sprintf("ProblemType(%d)", int(t))
	}
}

// Directed reports whether the type expects a directed graph.
func (t ProblemType) Directed() bool {
	return t != TypeTSP
}

// Extension returns the file extension, including the dot.
func (t ProblemType) Extension() string {
	for ext, typ := range extensions {
		if typ == t {
			return ext
		}
	}
	return ""
}

// TypeForPath selects the problem type from the file extension.
func TypeForPath(path string) (ProblemType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	typ, ok := extensions[ext]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported extension %q", ErrFormatMismatch, ext)
	}
	return typ, nil
}

// Basename strips the extension from path.
func Basename(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Problem is the read-only input of WriteProblem.
type Problem struct {
	Graph *Graph
	// Order fixes the 1-based node numbering. Defaults to Graph.Nodes().
	Order   []string
	Comment string
	// Unreachable is the matrix value for missing edges. Zero means DefaultUnreachable.
	Unreachable int64

	// m-PDTSP only. Demand holds one vector per node, in Order.
	Demand   [][]int
	Capacity *int
	// Depot is a 0-based position in Order.
	Depot *int
}

func (p *Problem) order() []string {
	if len(p.Order) > 0 {
		return p.Order
	}
	return p.Graph.Nodes()
}

// MaxPrecision is the largest number of decimal digits a weight may keep.
// Beyond it, 10^precision times any useful weight leaves the int64 range.
const MaxPrecision = 9

// Quantize converts a weight to fixed point with the given number of decimal digits.
func Quantize(weight float64, precision int) (int64, error) {
	if precision < 0 || precision > MaxPrecision {
		return 0, fmt.Errorf("%w: precision must be between 0 and %d, got %d", ErrInvalidProblem, MaxPrecision, precision)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0, fmt.Errorf("%w: weight %v is not finite", ErrInvalidProblem, weight)
	}
	scaled := math.Round(weight * math.Pow10(precision))
	if math.IsNaN(scaled) || scaled >= math.MaxInt64 || scaled < math.MinInt64 {
		return 0, fmt.Errorf("%w: weight %v overflows at precision %d", ErrInvalidProblem, weight, precision)
	}
	return int64(scaled), nil
}

// WriteProblem writes p to path in TSPLIB format and returns the basename
// (path without extension) shared by the .par, .pi and .tour files.
func WriteProblem(path string, p *Problem, precision int) (string, error) {
	typ, err := TypeForPath(path)
	if err != nil {
		return "", err
	}
	if err := p.validate(typ, precision); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create problem file %s: %w", path, err)
	}
	basename := Basename(path)
	if err := encodeProblem(f, filepath.Base(basename), typ, p, precision); err != nil {
		f.Close()
		return "", fmt.Errorf("write problem file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close problem file %s: %w", path, err)
	}
	return basename, nil
}

// EncodeProblem writes p to w as a problem of type typ.
func EncodeProblem(w io.Writer, name string, typ ProblemType, p *Problem, precision int) error {
	if err := p.validate(typ, precision); err != nil {
		return err
	}
	return encodeProblem(w, name, typ, p, precision)
}

func (p *Problem) validate(typ ProblemType, precision int) error {
	if p == nil || p.Graph == nil {
		return fmt.Errorf("%w: graph is required", ErrMissingArgument)
	}
	if p.Graph.Directed() != typ.Directed() {
		return fmt.Errorf("%w: %s requires directed=%t, graph has directed=%t",
			ErrFormatMismatch, typ, typ.Directed(), p.Graph.Directed())
	}
	if precision < 0 || precision > MaxPrecision {
		return fmt.Errorf("%w: precision must be between 0 and %d, got %d", ErrInvalidProblem, MaxPrecision, precision)
	}

	order := p.order()
	if len(order) == 0 {
		return fmt.Errorf("%w: graph has no nodes", ErrInvalidProblem)
	}
	if len(p.Order) > 0 {
		if len(p.Order) != p.Graph.Len() {
			return fmt.Errorf("%w: ordering has %d nodes, graph has %d", ErrInvalidProblem, len(p.Order), p.Graph.Len())
		}
		seen := make(map[string]bool, len(p.Order))
		for _, id := range p.Order {
			if !p.Graph.HasNode(id) {
				return fmt.Errorf("%w: ordering references unknown node %q", ErrInvalidProblem, id)
			}
			if seen[id] {
				return fmt.Errorf("%w: node %q appears twice in ordering", ErrInvalidProblem, id)
			}
			seen[id] = true
		}
	}

	if typ != TypeMPDTSP {
		return nil
	}
	switch {
	case len(p.Demand) == 0:
		return fmt.Errorf("%w: %s requires demand", ErrMissingArgument, typ)
	case p.Capacity == nil:
		return fmt.Errorf("%w: %s requires capacity", ErrMissingArgument, typ)
	case p.Depot == nil:
		return fmt.Errorf("%w: %s requires depot", ErrMissingArgument, typ)
	}
	if len(p.Demand) != len(order) {
		return fmt.Errorf("%w: %d demand rows for %d nodes", ErrInvalidProblem, len(p.Demand), len(order))
	}
	dim := len(p.Demand[0])
	for i, row := range p.Demand {
		if len(row) == 0 || len(row) != dim {
			return fmt.Errorf("%w: demand row %d has %d entries, want %d", ErrInvalidProblem, i+1, len(row), dim)
		}
	}
	if *p.Depot < 0 || *p.Depot >= len(order) {
		return fmt.Errorf("%w: depot %d out of range [0,%d)", ErrInvalidProblem, *p.Depot, len(order))
	}
	return nil
}

func encodeProblem(w io.Writer, name string, typ ProblemType, p *Problem, precision int) error {
	order := p.order()
	n := len(order)
	comment := p.Comment
	if comment == "" {
		comment = name
	}
	unreachable := p.Unreachable
	if unreachable == 0 {
		unreachable = DefaultUnreachable
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "NAME: %s\n", name)
	fmt.Fprintf(bw, "TYPE: %s\n", typ)
	fmt.Fprintf(bw, "COMMENT: %s\n", comment)
	fmt.Fprintf(bw, "DIMENSION: %d\n", n)
	if typ == TypeMPDTSP {
		fmt.Fprintf(bw, "CAPACITY: %d\n", *p.Capacity)
		fmt.Fprintf(bw, "DEMAND_DIMENSION: %d\n", len(p.Demand[0]))
	}
	bw.WriteString("EDGE_WEIGHT_TYPE: EXPLICIT\n")
	bw.WriteString("EDGE_WEIGHT_FORMAT: FULL_MATRIX\n")
	bw.WriteString("EDGE_WEIGHT_SECTION\n")

	row := make([]string, n)
	for i, from := range order {
		for j, to := range order {
			var v int64
			switch weight, ok := p.Graph.Weight(from, to); {
			case i == j:
				v = 0
			case !ok:
				v = unreachable
			default:
				q, err := Quantize(weight, precision)
				if err != nil {
					return fmt.Errorf("edge %s->%s: %w", from, to, err)
				}
				v = q
			}
			row[j] = strconv.FormatInt(v, 10)
		}
		bw.WriteString(strings.Join(row, " "))
		bw.WriteByte('\n')
	}

	if typ == TypeMPDTSP {
		bw.WriteString("DEMAND_SECTION\n")
		for i, demand := range p.Demand {
			fmt.Fprintf(bw, "%d", i+1)
			for _, d := range demand {
				fmt.Fprintf(bw, " %d", d)
			}
			bw.WriteByte('\n')
		}
		bw.WriteString("DEPOT_SECTION\n")
		fmt.Fprintf(bw, "%d\n-1\n", *p.Depot+1)
	}
	bw.WriteString("EOF\n")
	return bw.Flush()
}
