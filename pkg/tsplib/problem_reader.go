package tsplib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ProblemFile is the parsed content of an EXPLICIT FULL_MATRIX problem file.
type ProblemFile struct {
	Name            string
	Type            string
	Comment         string
	Dimension       int
	Capacity        int
	DemandDimension int
	// Header keeps every header line, including the ones above.
	Header  map[string]string
	Weights [][]int64
	Demand  [][]int
	// Depots are 1-based, without the -1 terminator.
	Depots []int
}

// ReadProblem parses a problem file written by WriteProblem.
func ReadProblem(path string) (*ProblemFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open problem file %s: %w", path, err)
	}
	defer f.Close()
	pf, err := ParseProblem(f)
	if err != nil {
		return nil, fmt.Errorf("parse problem file %s: %w", path, err)
	}
	return pf, nil
}

// ParseProblem parses an EXPLICIT FULL_MATRIX problem from r.
func ParseProblem(r io.Reader) (*ProblemFile, error) {
	pf := &ProblemFile{Header: make(map[string]string), DemandDimension: 1}
	var flat []int64
	section := ""

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "EOF" {
			break
		}
		if strings.HasSuffix(line, "_SECTION") {
			switch line {
			case "EDGE_WEIGHT_SECTION", "DEMAND_SECTION", "DEPOT_SECTION":
			default:
				return nil, fmt.Errorf("%w: unsupported section %s", ErrMalformedProblem, line)
			}
			if err := pf.applyHeader(); err != nil {
				return nil, err
			}
			section = line
			continue
		}

		switch section {
		case "":
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				return nil, fmt.Errorf("%w: unexpected line %q", ErrMalformedProblem, line)
			}
			pf.Header[strings.TrimSpace(key)] = strings.TrimSpace(value)
		case "EDGE_WEIGHT_SECTION":
			for _, field := range strings.Fields(line) {
				v, err := strconv.ParseInt(field, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: edge weight %q", ErrMalformedProblem, field)
				}
				flat = append(flat, v)
			}
		case "DEMAND_SECTION":
			ints, err := atoiFields(line)
			if err != nil {
				return nil, err
			}
			if len(ints) != pf.DemandDimension+1 {
				return nil, fmt.Errorf("%w: demand line %q has %d values, want %d",
					ErrMalformedProblem, line, len(ints), pf.DemandDimension+1)
			}
			pf.Demand = append(pf.Demand, ints[1:])
		case "DEPOT_SECTION":
			ints, err := atoiFields(line)
			if err != nil {
				return nil, err
			}
			for _, v := range ints {
				if v == -1 {
					section = "done"
					break
				}
				pf.Depots = append(pf.Depots, v)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := pf.applyHeader(); err != nil {
		return nil, err
	}

	n := pf.Dimension
	if len(flat) != n*n {
		return nil, fmt.Errorf("%w: %d edge weights for dimension %d", ErrMalformedProblem, len(flat), n)
	}
	pf.Weights = make([][]int64, n)
	for i := range pf.Weights {
		pf.Weights[i] = flat[i*n : (i+1)*n]
	}
	if pf.Demand != nil && len(pf.Demand) != n {
		return nil, fmt.Errorf("%w: %d demand rows for dimension %d", ErrMalformedProblem, len(pf.Demand), n)
	}
	return pf, nil
}

func (pf *ProblemFile) applyHeader() error {
	pf.Name = pf.Header["NAME"]
	pf.Type = pf.Header["TYPE"]
	pf.Comment = pf.Header["COMMENT"]
	if f, ok := pf.Header["EDGE_WEIGHT_FORMAT"]; ok && f != "FULL_MATRIX" {
		return fmt.Errorf("%w: unsupported EDGE_WEIGHT_FORMAT %s", ErrMalformedProblem, f)
	}
	ints := map[string]*int{
		"DIMENSION":        &pf.Dimension,
		"CAPACITY":         &pf.Capacity,
		"DEMAND_DIMENSION": &pf.DemandDimension,
	}
	for key, dst := range ints {
		raw, ok := pf.Header[key]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s %q is not an integer", ErrMalformedProblem, key, raw)
		}
		*dst = v
	}
	if pf.Dimension <= 0 {
		return fmt.Errorf("%w: DIMENSION missing", ErrMalformedProblem)
	}
	return nil
}

func atoiFields(line string) ([]int, error) {
	fields := strings.Fields(line)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformedProblem, f)
		}
		out[i] = v
	}
	return out, nil
}
