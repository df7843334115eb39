package tsplib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	eofToken           = "EOF"
	tourSectionKeyword = "TOUR_SECTION"
)

// Header holds the key/value lines of a tour file. Values are int when the
// text parses as an integer and string otherwise.
type Header map[string]any

// Int returns an integer header value.
func (h Header) Int(key string) (int, bool) {
	v, ok := h[key].(int)
	return v, ok
}

// Text returns a string header value.
func (h Header) Text(key string) (string, bool) {
	v, ok := h[key].(string)
	return v, ok
}

// add stores value under key. Repeated string values are joined with a space.
func (h Header) add(key, raw string) {
	var value any = raw
	if n, err := strconv.Atoi(raw); err == nil {
		value = n
	}
	if prev, ok := h[key].(string); ok {
		value = prev + " " + fmt.Sprint(value)
	}
	h[key] = value
}

// Tour is a solver tour: 1-based node indices plus header metadata.
type Tour struct {
	Nodes  []int
	Header Header
}

// ReadTour parses the tour file at path.
func ReadTour(path string) (*Tour, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tour file %s: %w", path, err)
	}
	defer f.Close()
	t, err := ParseTour(f)
	if err != nil {
		return nil, fmt.Errorf("parse tour file %s: %w", path, err)
	}
	return t, nil
}

// ParseTour reads r until a line containing EOF or the end of the stream.
// Lines with a colon are header entries; the tour is the DIMENSION lines
// that follow the TOUR_SECTION keyword.
func ParseTour(r io.Reader) (*Tour, error) {
	header := make(Header)
	var rest []string

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if strings.Contains(line, eofToken) {
			break
		}
		if key, value, ok := strings.Cut(line, ":"); ok {
			header.add(strings.TrimSpace(key), strings.TrimSpace(value))
		} else {
			rest = append(rest, line)
		}
		if err != nil {
			break
		}
	}

	dim, ok := header.Int("DIMENSION")
	if !ok {
		return nil, ErrNoDimension
	}
	if dim < 0 {
		return nil, fmt.Errorf("%w: negative DIMENSION %d", ErrMalformedTour, dim)
	}
	start := -1
	for i, line := range rest {
		if strings.Contains(line, tourSectionKeyword) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, ErrNoTourSection
	}
	if len(rest)-start < dim {
		return nil, fmt.Errorf("%w: %d of %d nodes present", ErrMalformedTour, len(rest)-start, dim)
	}

	nodes := make([]int, dim)
	for i, line := range rest[start : start+dim] {
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			return nil, fmt.Errorf("%w: line %q", ErrMalformedTour, strings.TrimSpace(line))
		}
		nodes[i] = n
	}
	return &Tour{Nodes: nodes, Header: header}, nil
}

// Name returns the NAME header.
func (t *Tour) Name() string {
	name, _ := t.Header.Text("NAME")
	return name
}

// Length returns the tour cost parsed from a "COMMENT : Length = N" header,
// as written by LKH.
func (t *Tour) Length() (int, bool) {
	if n, ok := t.Header.Int("LENGTH"); ok {
		return n, true
	}
	comment, ok := t.Header.Text("COMMENT")
	if !ok {
		return 0, false
	}
	_, after, found := strings.Cut(comment, "Length =")
	if !found {
		return 0, false
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	return n, err == nil
}

// Validate checks that the tour visits each of 1..n exactly once.
func (t *Tour) Validate(n int) error {
	if len(t.Nodes) != n {
		return fmt.Errorf("%w: tour has %d nodes, want %d", ErrMalformedTour, len(t.Nodes), n)
	}
	seen := make([]bool, n+1)
	for _, v := range t.Nodes {
		if v < 1 || v > n {
			return fmt.Errorf("%w: node %d out of range 1..%d", ErrMalformedTour, v, n)
		}
		if seen[v] {
			return fmt.Errorf("%w: node %d visited twice", ErrMalformedTour, v)
		}
		seen[v] = true
	}
	return nil
}

// Resolve maps the 1-based tour indices back to node IDs of order.
func (t *Tour) Resolve(order []string) ([]string, error) {
	out := make([]string, len(t.Nodes))
	for i, v := range t.Nodes {
		if v < 1 || v > len(order) {
			return nil, fmt.Errorf("%w: node %d out of range 1..%d", ErrMalformedTour, v, len(order))
		}
		out[i] = order[v-1]
	}
	return out, nil
}
