package lkh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/logger"
	"github.com/GoSim-25-26J-441/lkh-solver/pkg/tsplib"
)

// TmpDirName is the scratch directory the solver expects inside the work dir.
const TmpDirName = "TMP"

// RunInfo describes one solver invocation.
type RunInfo struct {
	Basename string
	Elapsed  time.Duration
	// Stdout and Stderr are only captured when TraceLevel is zero.
	Stdout []byte
	Stderr []byte
	// ExitCode is informational; a tour file is the only success signal.
	ExitCode int
}

// Solver runs the external LKH executable. A Solver may be shared by
// goroutines only if each call uses parameters with a distinct problem name,
// or each goroutine has its own work dir.
type Solver struct {
	executable string
	workDir    string
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

// Option configures a Solver.
type Option func(*Solver)

// WithWorkDir sets the directory holding the .par, .pi and .tour files.
func WithWorkDir(dir string) Option {
	return func(s *Solver) { s.workDir = dir }
}

// WithLogger sets the logger. Defaults to logger.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// WithOutput sets where solver output goes when TraceLevel is above zero.
// Defaults to the process's own stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Solver) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// DefaultWorkDir is ~/.lkh, or <tmp>/lkh when there is no home directory.
func DefaultWorkDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lkh")
	}
	return filepath.Join(home, ".lkh")
}

// NewSolver resolves executable once (through PATH when it has no
// separator) and returns a Solver using it.
func NewSolver(executable string, opts ...Option) (*Solver, error) {
	if executable == "" {
		return nil, fmt.Errorf("%w: solver executable not configured", ErrConfig)
	}
	path, err := exec.LookPath(executable)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve solver executable: %w", ErrConfig, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	s := &Solver{
		executable: path,
		workDir:    DefaultWorkDir(),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.Or(s.logger)
	return s, nil
}

// Executable returns the resolved solver path.
func (s *Solver) Executable() string {
	return s.executable
}

// WorkDir returns the solver's working directory.
func (s *Solver) WorkDir() string {
	return s.workDir
}

// InDir returns a copy of s that works in dir. Copies share the resolved
// executable, so one Solver can serve callers that each need their own area.
func (s *Solver) InDir(dir string) *Solver {
	c := *s
	c.workDir = dir
	return &c
}

// Solve writes the parameter file for params, runs the solver and reads the
// tour. A run that leaves no tour file returns a nil tour and no error; the
// exit code is only recorded in RunInfo. Cancelling ctx kills the solver.
func (s *Solver) Solve(ctx context.Context, params Parameters) (*tsplib.Tour, *RunInfo, error) {
	start := time.Now()
	info := &RunInfo{ExitCode: -1}

	if params.ProblemFile == "" {
		return nil, info, fmt.Errorf("%w: parameters have no problem file", ErrConfig)
	}
	if err := params.Validate(); err != nil {
		return nil, info, err
	}
	problemFile, err := filepath.Abs(params.ProblemFile)
	if err != nil {
		return nil, info, fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	params.ProblemFile = problemFile

	workDir, err := filepath.Abs(s.workDir)
	if err != nil {
		return nil, info, fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	base := Basename(problemFile, workDir)
	for _, ext := range []string{ParExt, PiExt, TourExt} {
		if problemFile == base+ext {
			return nil, info, fmt.Errorf("%w: problem file %s would be overwritten by the solver's own %s file", ErrConfig, problemFile, ext)
		}
	}
	tmpDir := filepath.Join(workDir, TmpDirName)
	for _, dir := range []string{workDir, tmpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, info, fmt.Errorf("%w: failed to create %s: %w", ErrFilesystem, dir, err)
		}
	}

	basename, err := WriteParameterFile(params, workDir)
	if err != nil {
		return nil, info, err
	}
	info.Basename = basename
	log := s.logger.With("basename", basename)
	defer s.cleanup(log, basename, tmpDir)

	tourFile := basename + TourExt
	if err := os.Remove(tourFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Debug("failed to remove stale tour", "path", tourFile, "error", err)
	}

	cmd := exec.CommandContext(ctx, s.executable, basename+ParExt)
	cmd.Dir = workDir
	var stdout, stderr bytes.Buffer
	if params.TraceLevel > 0 {
		cmd.Stdout = s.stdout
		cmd.Stderr = s.stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	log.Info("starting solver", "executable", s.executable, "problem_file", problemFile)
	runErr := cmd.Run()
	info.Stdout = stdout.Bytes()
	info.Stderr = stderr.Bytes()
	if cmd.ProcessState != nil {
		info.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() != nil {
		info.Elapsed = time.Since(start)
		return nil, info, ctx.Err()
	}
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		log.Warn("solver exited with error", "exit_code", info.ExitCode, "error", runErr)
	default:
		info.Elapsed = time.Since(start)
		return nil, info, fmt.Errorf("run solver: %w", runErr)
	}

	var tour *tsplib.Tour
	if _, err := os.Stat(tourFile); err == nil {
		tour, err = tsplib.ReadTour(tourFile)
		if err != nil {
			info.Elapsed = time.Since(start)
			return nil, info, err
		}
	} else {
		log.Warn("solver produced no tour", "path", tourFile)
	}
	info.Elapsed = time.Since(start)
	log.Info("solver finished", "elapsed", info.Elapsed, "exit_code", info.ExitCode, "tour", tour != nil)
	return tour, info, nil
}

// SolveProblem writes problem to problemPath with the given quantization
// precision and solves it with params.
func (s *Solver) SolveProblem(ctx context.Context, problemPath string, problem *tsplib.Problem, precision int, params Parameters) (*tsplib.Tour, *RunInfo, error) {
	if _, err := tsplib.WriteProblem(problemPath, problem, precision); err != nil {
		return nil, &RunInfo{ExitCode: -1}, err
	}
	params.ProblemFile = problemPath
	return s.Solve(ctx, params)
}

func (s *Solver) cleanup(log *slog.Logger, basename, tmpDir string) {
	if err := os.Remove(basename + PiExt); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Debug("failed to remove pi file", "error", err)
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		log.Debug("failed to remove tmp dir", "path", tmpDir, "error", err)
	}
}
