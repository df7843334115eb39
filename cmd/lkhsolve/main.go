// Command lkhsolve solves one routing problem with the LKH executable and
// prints the tour.
//
//	lkhsolve -problem config/problems/square.yaml -set max_trials=200
//	lkhsolve -tsplib pr76.tsp -work-dir /tmp/lkh -json
//	lkhsolve -inspect /tmp/lkh/pr76.tour
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/config"
	"github.com/GoSim-25-26J-441/lkh-solver/pkg/lkh"
	"github.com/GoSim-25-26J-441/lkh-solver/pkg/logger"
	"github.com/GoSim-25-26J-441/lkh-solver/pkg/tsplib"
)

// Exit codes.
const (
	exitOK     = 0
	exitError  = 1
	exitNoTour = 2
	exitUsage  = 64
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// kvFlag collects repeated key=value flags.
type kvFlag map[string]string

func (f kvFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k+"="+f[k])
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (f kvFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	f[strings.TrimSpace(k)] = v
	return nil
}

type tourOutput struct {
	Name    string   `yaml:"name,omitempty" json:"name,omitempty"`
	Length  *int     `yaml:"length,omitempty" json:"length,omitempty"`
	Nodes   []int    `yaml:"nodes" json:"nodes"`
	NodeIDs []string `yaml:"node_ids,omitempty" json:"node_ids,omitempty"`
}

type result struct {
	ProblemFile string      `yaml:"problem_file" json:"problem_file"`
	Basename    string      `yaml:"basename" json:"basename"`
	ExitCode    int         `yaml:"exit_code" json:"exit_code"`
	ElapsedMs   int64       `yaml:"elapsed_ms" json:"elapsed_ms"`
	Tour        *tourOutput `yaml:"tour,omitempty" json:"tour,omitempty"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lkhsolve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath  string
		problemPath string
		tsplibPath  string
		inspectPath string
		workDir     string
		executable  string
		precision   int
		asJSON      bool
	)
	sets := kvFlag{}
	extras := kvFlag{}
	fs.StringVar(&configPath, "config", "", "path to config YAML")
	fs.StringVar(&problemPath, "problem", "", "problem description YAML (nodes, edges or matrix)")
	fs.StringVar(&tsplibPath, "tsplib", "", "existing .tsp, .atsp or .m-pdtsp problem file")
	fs.StringVar(&inspectPath, "inspect", "", "print a .tour file and exit")
	fs.StringVar(&workDir, "work-dir", "", "solver working directory (overrides config)")
	fs.StringVar(&executable, "solver", "", "solver executable (overrides config)")
	fs.IntVar(&precision, "precision", -1, "decimal digits kept when quantizing weights (overrides config)")
	fs.BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	fs.Var(sets, "set", "solver parameter name=value (repeatable)")
	fs.Var(extras, "extra", "free-form solver option KEY=VALUE (repeatable)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if inspectPath != "" {
		return inspect(inspectPath, asJSON, stdout, stderr)
	}
	if (problemPath == "") == (tsplibPath == "") {
		fmt.Fprintln(stderr, "exactly one of -problem or -tsplib is required")
		fs.Usage()
		return exitUsage
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		cfg = loaded
	}
	if workDir != "" {
		cfg.Solver.WorkDir = workDir
	}
	if executable != "" {
		cfg.Solver.Executable = executable
	}
	if precision >= 0 {
		cfg.Precision = precision
	}
	log := logger.NewFormat(cfg.LogFormat, cfg.LogLevel, stderr)

	params := cfg.Parameters.Clone()
	if err := params.Apply(sets); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	for k, v := range extras {
		if err := params.SetExtra(k, v); err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
	}

	solver, err := lkh.NewSolver(cfg.Solver.Executable, lkh.WithWorkDir(cfg.Solver.WorkDir), lkh.WithLogger(log), lkh.WithOutput(stderr, stderr))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	var (
		tour  *tsplib.Tour
		info  *lkh.RunInfo
		order []string
	)
	if problemPath != "" {
		spec, err := config.LoadProblem(problemPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		problem, _, err := spec.Build()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		if err := os.MkdirAll(cfg.Solver.WorkDir, 0o755); err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		order = problem.Order
		target := filepath.Join(cfg.Solver.WorkDir, spec.FileName())
		tour, info, err = solver.SolveProblem(ctx, target, problem, cfg.Precision, params)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		params.ProblemFile = target
	} else {
		params.ProblemFile = tsplibPath
		tour, info, err = solver.Solve(ctx, params)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
	}

	out := result{
		ProblemFile: params.ProblemFile,
		Basename:    info.Basename,
		ExitCode:    info.ExitCode,
		ElapsedMs:   info.Elapsed.Milliseconds(),
	}
	code := exitOK
	if tour == nil {
		fmt.Fprintln(stderr, "solver produced no tour")
		code = exitNoTour
	} else {
		t, err := newTourOutput(tour, order)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		out.Tour = t
	}
	if err := emit(stdout, out, asJSON); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return code
}

func inspect(path string, asJSON bool, stdout, stderr io.Writer) int {
	tour, err := tsplib.ReadTour(path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		if errors.Is(err, os.ErrNotExist) {
			return exitNoTour
		}
		return exitError
	}
	t, err := newTourOutput(tour, nil)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if err := emit(stdout, t, asJSON); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return exitOK
}

// newTourOutput maps node indices back to IDs when order is known.
func newTourOutput(tour *tsplib.Tour, order []string) (*tourOutput, error) {
	out := &tourOutput{Name: tour.Name(), Nodes: tour.Nodes}
	if l, ok := tour.Length(); ok {
		out.Length = &l
	}
	if order != nil {
		if err := tour.Validate(len(order)); err != nil {
			return nil, err
		}
		ids, err := tour.Resolve(order)
		if err != nil {
			return nil, err
		}
		out.NodeIDs = ids
	}
	return out, nil
}

func emit(w io.Writer, v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
