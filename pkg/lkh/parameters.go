package lkh

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// MTSP objectives accepted by LKH-3.
const (
	ObjectiveMinMax     = "MINMAX"
	ObjectiveMinMaxSize = "MINMAX_SIZE"
	ObjectiveMinSum     = "MINSUM"
)

// Parameters is the closed set of solver options written to the .par file.
// Optional options are pointers (or empty strings) and are only written when set.
type Parameters struct {
	// ProblemFile must be set before the parameters are serialized.
	ProblemFile string `yaml:"problem_file" json:"problem_file,omitempty"`

	// AscentCandidates is the number of candidate edges associated with each
	// node during the ascent.
	AscentCandidates int `yaml:"ascent_candidates" json:"ascent_candidates"`
	// BackboneTrials is the number of backbone trials in each run.
	BackboneTrials int `yaml:"backbone_trials" json:"backbone_trials"`
	// Backtracking uses a backtracking MoveType-opt move as the first move of a sequence.
	Backtracking bool `yaml:"backtracking" json:"backtracking"`
	// ExtraCandidates is the number of extra candidate edges per node.
	ExtraCandidates int `yaml:"extra_candidates" json:"extra_candidates"`
	// Kicks is the number of random KickType-swap kicks applied to a
	// Lin-Kernighan tour. Zero selects the WALK kicking strategy.
	Kicks int `yaml:"kicks" json:"kicks"`
	// KickType is K for a random K-swap kick; zero selects WALK.
	KickType int `yaml:"kick_type" json:"kick_type"`
	// MaxCandidates is the maximum number of candidate edges per node.
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates"`
	// MaxTrials is the maximum number of trials in each run.
	MaxTrials int `yaml:"max_trials" json:"max_trials"`
	// MoveType K >= 2 selects sequential K-opt moves in local search.
	MoveType int `yaml:"move_type" json:"move_type"`
	// PopulationSize is the population size of the genetic algorithm.
	PopulationSize int `yaml:"population_size" json:"population_size"`
	// Precision is the internal precision of transformed distances (10 keeps two decimals).
	Precision int `yaml:"precision" json:"precision"`
	Runs      int `yaml:"runs" json:"runs"`
	Seed      int `yaml:"seed" json:"seed"`
	// TraceLevel above zero lets the solver write to the caller's terminal.
	TraceLevel int `yaml:"trace_level" json:"trace_level"`
	// TimeLimit in seconds.
	TimeLimit *float64 `yaml:"time_limit,omitempty" json:"time_limit,omitempty"`

	// Multi-salesman options (LKH-3).
	Salesmen      *int   `yaml:"salesmen,omitempty" json:"salesmen,omitempty"`
	MTSPMinSize   *int   `yaml:"mtsp_min_size,omitempty" json:"mtsp_min_size,omitempty"`
	MTSPMaxSize   *int   `yaml:"mtsp_max_size,omitempty" json:"mtsp_max_size,omitempty"`
	MTSPObjective string `yaml:"mtsp_objective,omitempty" json:"mtsp_objective,omitempty"`

	// Special enables the solver's SPECIAL mode, which fixes the kick, move
	// and population options itself.
	Special bool `yaml:"special" json:"special"`

	// Extra holds free-form KEY = VALUE options passed through verbatim.
	Extra map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// DefaultParameters returns the solver defaults.
func DefaultParameters() Parameters {
	return Parameters{
		AscentCandidates: 50,
		BackboneTrials:   0,
		Backtracking:     false,
		ExtraCandidates:  0,
		Kicks:            1,
		KickType:         0,
		MaxCandidates:    30,
		MaxTrials:        1000,
		MoveType:         5,
		PopulationSize:   1,
		Precision:        10,
		Runs:             1,
		Seed:             1,
		TraceLevel:       1,
	}
}

// fieldIndex maps lower-case option names (the yaml tags) to struct field indexes.
var fieldIndex = func() map[string]int {
	idx := make(map[string]int)
	t := reflect.TypeOf(Parameters{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		if name == "" || name == "extra" {
			continue
		}
		idx[name] = i
	}
	return idx
}()

// derivedKeys are written by the serializer and cannot be set by callers.
var derivedKeys = map[string]bool{
	"OUTPUT_TOUR_FILE":   true,
	"PI_FILE":            true,
	"MTSP_SOLUTION_FILE": true,
}

// Known reports whether name is part of the parameter schema.
func Known(name string) bool {
	_, ok := fieldIndex[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Set assigns a schema option from its text form. Names are matched
// case-insensitively ("max_trials" or "MAX_TRIALS").
func (p *Parameters) Set(name, value string) error {
	i, ok := fieldIndex[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	f := reflect.ValueOf(p).Elem().Field(i)
	value = strings.TrimSpace(value)

	switch f.Kind() {
	case reflect.String:
		f.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidParameter, name, value)
		}
		f.SetInt(int64(n))
	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidParameter, name, value)
		}
		f.SetBool(b)
	case reflect.Pointer:
		switch f.Type().Elem().Kind() {
		case reflect.Int:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidParameter, name, value)
			}
			f.Set(reflect.ValueOf(&n))
		case reflect.Float64:
			x, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidParameter, name, value)
			}
			f.Set(reflect.ValueOf(&x))
		}
	}
	return nil
}

// SetExtra stores a free-form option. Keys of the schema must go through Set.
func (p *Parameters) SetExtra(key, value string) error {
	key = strings.ToUpper(strings.TrimSpace(key))
	if err := checkExtra(key, value); err != nil {
		return err
	}
	if p.Extra == nil {
		p.Extra = make(map[string]string)
	}
	p.Extra[key] = value
	return nil
}

// checkExtra rejects keys the serializer owns and text that would add lines
// to the parameter file.
func checkExtra(key, value string) error {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" || strings.ContainsAny(key, "=\r\n") {
		return fmt.Errorf("%w: bad extra key %q", ErrInvalidParameter, key)
	}
	if Known(key) || derivedKeys[key] {
		return fmt.Errorf("%w: %s is a schema option", ErrInvalidParameter, key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %s value spans lines", ErrInvalidParameter, key)
	}
	return nil
}

// Apply calls Set for every entry.
func (p *Parameters) Apply(values map[string]string) error {
	for name, value := range values {
		if err := p.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a copy that shares no maps or pointers with p.
func (p Parameters) Clone() Parameters {
	c := p
	if p.Extra != nil {
		c.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	c.TimeLimit = clonePtr(p.TimeLimit)
	c.Salesmen = clonePtr(p.Salesmen)
	c.MTSPMinSize = clonePtr(p.MTSPMinSize)
	c.MTSPMaxSize = clonePtr(p.MTSPMaxSize)
	return c
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Validate checks value ranges the solver would otherwise reject at startup.
func (p *Parameters) Validate() error {
	nonNegative := map[string]int{
		"ASCENT_CANDIDATES": p.AscentCandidates,
		"BACKBONE_TRIALS":   p.BackboneTrials,
		"EXTRA_CANDIDATES":  p.ExtraCandidates,
		"KICKS":             p.Kicks,
		"MAX_CANDIDATES":    p.MaxCandidates,
		"MAX_TRIALS":        p.MaxTrials,
		"POPULATION_SIZE":   p.PopulationSize,
		"SEED":              p.Seed,
		"TRACE_LEVEL":       p.TraceLevel,
	}
	for key, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %d", ErrInvalidParameter, key, v)
		}
	}
	if p.MoveType < 2 {
		return fmt.Errorf("%w: MOVE_TYPE must be >= 2, got %d", ErrInvalidParameter, p.MoveType)
	}
	if p.KickType != 0 && p.KickType < 4 {
		return fmt.Errorf("%w: KICK_TYPE must be 0 or >= 4, got %d", ErrInvalidParameter, p.KickType)
	}
	if p.Precision < 1 {
		return fmt.Errorf("%w: PRECISION must be >= 1, got %d", ErrInvalidParameter, p.Precision)
	}
	if p.Runs < 1 {
		return fmt.Errorf("%w: RUNS must be >= 1, got %d", ErrInvalidParameter, p.Runs)
	}
	if p.TimeLimit != nil && *p.TimeLimit < 0 {
		return fmt.Errorf("%w: TIME_LIMIT must be >= 0, got %v", ErrInvalidParameter, *p.TimeLimit)
	}
	if p.Salesmen != nil && *p.Salesmen < 1 {
		return fmt.Errorf("%w: SALESMEN must be >= 1, got %d", ErrInvalidParameter, *p.Salesmen)
	}
	if p.MTSPMinSize != nil && *p.MTSPMinSize < 0 {
		return fmt.Errorf("%w: MTSP_MIN_SIZE must be >= 0, got %d", ErrInvalidParameter, *p.MTSPMinSize)
	}
	if p.MTSPMinSize != nil && p.MTSPMaxSize != nil && *p.MTSPMaxSize < *p.MTSPMinSize {
		return fmt.Errorf("%w: MTSP_MAX_SIZE %d < MTSP_MIN_SIZE %d", ErrInvalidParameter, *p.MTSPMaxSize, *p.MTSPMinSize)
	}
	switch p.MTSPObjective {
	case "", ObjectiveMinMax, ObjectiveMinMaxSize, ObjectiveMinSum:
	default:
		return fmt.Errorf("%w: unknown MTSP_OBJECTIVE %q", ErrInvalidParameter, p.MTSPObjective)
	}

	// Extra may come from YAML or JSON without passing through SetExtra.
	seen := make(map[string]string, len(p.Extra))
	for key, value := range p.Extra {
		if err := checkExtra(key, value); err != nil {
			return err
		}
		upper := strings.ToUpper(strings.TrimSpace(key))
		if other, dup := seen[upper]; dup {
			return fmt.Errorf("%w: extra keys %q and %q name the same option", ErrInvalidParameter, other, key)
		}
		seen[upper] = key
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "YES", "Y", "ON":
		return true, nil
	case "NO", "N", "OFF":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
