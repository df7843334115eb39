package lkh

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/tsplib"
)

// Sibling file extensions derived from the basename.
const (
	ParExt  = ".par"
	PiExt   = ".pi"
	TourExt = ".tour"
	MTSPExt = ".mtsp"
)

// Basename returns the prefix shared by the .par, .pi and .tour files of a
// run: the problem file's name without extension, inside workDir. An empty
// workDir keeps the problem file's own directory.
func Basename(problemFile, workDir string) string {
	base := tsplib.Basename(problemFile)
	if workDir == "" {
		return base
	}
	return filepath.Join(workDir, filepath.Base(base))
}

// MarshalParameters renders p as KEY = VALUE lines. Output files are named
// after basename.
func MarshalParameters(p Parameters, basename string) ([]byte, error) {
	if strings.TrimSpace(p.ProblemFile) == "" {
		return nil, fmt.Errorf("%w: parameters have no problem file", ErrConfig)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	line := func(key string, value any) {
		fmt.Fprintf(&buf, "%s = %v\n", key, value)
	}
	optInt := func(key string, v *int) {
		if v != nil {
			line(key, *v)
		}
	}

	line("PROBLEM_FILE", p.ProblemFile)
	line("ASCENT_CANDIDATES", p.AscentCandidates)
	line("BACKBONE_TRIALS", p.BackboneTrials)
	line("BACKTRACKING", yesNo(p.Backtracking))
	line("EXTRA_CANDIDATES", p.ExtraCandidates)
	if !p.Special {
		line("KICKS", p.Kicks)
		line("KICK_TYPE", p.KickType)
	}
	line("MAX_CANDIDATES", p.MaxCandidates)
	line("MAX_TRIALS", p.MaxTrials)
	if !p.Special {
		line("MOVE_TYPE", p.MoveType)
	}
	optInt("MTSP_MAX_SIZE", p.MTSPMaxSize)
	optInt("MTSP_MIN_SIZE", p.MTSPMinSize)
	if p.MTSPObjective != "" {
		line("MTSP_OBJECTIVE", p.MTSPObjective)
	}
	if p.Salesmen != nil && *p.Salesmen > 1 {
		line("MTSP_SOLUTION_FILE", basename+MTSPExt)
	}
	line("OUTPUT_TOUR_FILE", basename+TourExt)
	line("PI_FILE", basename+PiExt)
	if !p.Special {
		line("POPULATION_SIZE", p.PopulationSize)
	}
	line("PRECISION", p.Precision)
	line("RUNS", p.Runs)
	optInt("SALESMEN", p.Salesmen)
	line("SEED", p.Seed)
	if p.Special {
		buf.WriteString("SPECIAL\n")
	}
	if p.TimeLimit != nil {
		line("TIME_LIMIT", strconv.FormatFloat(*p.TimeLimit, 'f', -1, 64))
	}
	line("TRACE_LEVEL", p.TraceLevel)

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line(strings.ToUpper(strings.TrimSpace(k)), p.Extra[k])
	}
	return buf.Bytes(), nil
}

// WriteParameterFile writes <basename>.par for p and returns the basename.
func WriteParameterFile(p Parameters, workDir string) (string, error) {
	basename := Basename(p.ProblemFile, workDir)
	data, err := MarshalParameters(p, basename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(basename+ParExt, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", ErrFilesystem, basename+ParExt, err)
	}
	return basename, nil
}
