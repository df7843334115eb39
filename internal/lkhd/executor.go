package lkhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/lkh"
	"github.com/GoSim-25-26J-441/lkh-solver/pkg/logger"
	"github.com/GoSim-25-26J-441/lkh-solver/pkg/tsplib"
)

// ExecutorConfig holds what every run inherits unless its input overrides it.
type ExecutorConfig struct {
	// WorkRoot holds one directory per run, named by run ID.
	WorkRoot      string
	MaxConcurrent int64
	Precision     int
	Parameters    lkh.Parameters
	KeepRunDirs   bool
	Logger        *slog.Logger
}

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store  *RunStore
	solver *lkh.Solver
	cfg    ExecutorConfig
	sem    *semaphore.Weighted
	log    *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// job is a run input that passed validation.
type job struct {
	runID     string
	fileName  string
	problem   *tsplib.Problem
	precision int
	params    lkh.Parameters
}

func NewRunExecutor(store *RunStore, solver *lkh.Solver, cfg ExecutorConfig) *RunExecutor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &RunExecutor{
		store:   store,
		solver:  solver,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		log:     logger.Or(cfg.Logger),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Submit validates input, records a PENDING run and starts it in the
// background. The run turns RUNNING once a solver slot is free.
func (e *RunExecutor) Submit(runID string, input *RunInput) (*RunRecord, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidInput)
	}
	j, err := e.prepare(input)
	if err != nil {
		return nil, err
	}
	rec, err := e.store.Create(runID, input)
	if err != nil {
		return nil, err
	}
	j.runID = rec.Run.ID

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancels[j.runID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.runSolve(ctx, j)
	return rec, nil
}

func (e *RunExecutor) prepare(input *RunInput) (*job, error) {
	problem, typ, err := input.Problem.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	precision := e.cfg.Precision
	if input.Precision != nil {
		precision = *input.Precision
	}
	// Dry run so type mismatches and missing m-PDTSP tables fail the request.
	if err := tsplib.EncodeProblem(io.Discard, input.Problem.Name, typ, problem, precision); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	params := e.cfg.Parameters.Clone()
	for name, value := range input.Parameters {
		text, err := parameterText(value)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %s: %w", ErrInvalidInput, name, err)
		}
		if err := params.Set(name, text); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	for k, v := range input.Extra {
		if err := params.SetExtra(k, v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return &job{
		fileName:  input.Problem.FileName(),
		problem:   problem,
		precision: precision,
		params:    params,
	}, nil
}

// parameterText renders a decoded JSON value the way Parameters.Set expects.
func parameterText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	}
	return "", fmt.Errorf("unsupported value %v (%T)", v, v)
}

// Stop requests cancellation for a run and marks it cancelled.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	updated, err := e.store.SetStatus(runID, StatusCancelled, "")
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return updated, nil
}

// Shutdown cancels every active run and waits until their goroutines exit
// or ctx is done.
func (e *RunExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id := range e.cancels {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	for _, id := range ids {
		if _, err := e.Stop(id); err != nil && !errors.Is(err, ErrRunTerminal) {
			e.log.Warn("failed to stop run during shutdown", "run_id", id, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) runSolve(ctx context.Context, j *job) {
	defer e.wg.Done()
	defer e.cleanup(j.runID)
	log := e.log.With("run_id", j.runID)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		log.Info("run cancelled while queued")
		return
	}
	defer e.sem.Release(1)

	if _, err := e.store.SetStatus(j.runID, StatusRunning, ""); err != nil {
		// Stopped between Acquire and here.
		return
	}

	dir := filepath.Join(e.cfg.WorkRoot, j.runID)
	if !e.cfg.KeepRunDirs {
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				log.Debug("failed to remove run dir", "path", dir, "error", err)
			}
		}()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("failed to create run dir", "path", dir, "error", err)
		e.finish(log, j.runID, StatusFailed, err.Error())
		return
	}

	log.Info("starting run", "problem", j.fileName, "nodes", len(j.problem.Order))
	problemPath := filepath.Join(dir, j.fileName)
	tour, info, err := e.solver.InDir(dir).SolveProblem(ctx, problemPath, j.problem, j.precision, j.params)
	if info != nil {
		var result *TourResult
		if err == nil && tour != nil {
			result, err = newTourResult(tour, j.problem.Order)
		}
		if setErr := e.store.SetResult(j.runID, result, info.ExitCode, info.Elapsed); setErr != nil {
			log.Error("failed to store result", "error", setErr)
		}
	}

	switch {
	case ctx.Err() != nil:
		e.finish(log, j.runID, StatusCancelled, "")
		log.Info("run cancelled")
	case err != nil:
		log.Error("run failed", "error", err)
		e.finish(log, j.runID, StatusFailed, err.Error())
	case tour == nil:
		msg := fmt.Sprintf("solver produced no tour (exit code %d)", info.ExitCode)
		log.Warn("run failed", "error", msg)
		e.finish(log, j.runID, StatusFailed, msg)
	default:
		e.finish(log, j.runID, StatusCompleted, "")
		log.Info("run completed", "elapsed", info.Elapsed)
	}
}

func (e *RunExecutor) finish(log *slog.Logger, runID string, status RunStatus, errMsg string) {
	if _, err := e.store.SetStatus(runID, status, errMsg); err != nil && !errors.Is(err, ErrRunTerminal) {
		log.Error("failed to set final status", "status", status, "error", err)
	}
}

func newTourResult(tour *tsplib.Tour, order []string) (*TourResult, error) {
	if err := tour.Validate(len(order)); err != nil {
		return nil, err
	}
	ids, err := tour.Resolve(order)
	if err != nil {
		return nil, err
	}
	res := &TourResult{
		Name:    tour.Name(),
		Nodes:   tour.Nodes,
		NodeIDs: ids,
		Header:  map[string]any(tour.Header),
	}
	if length, ok := tour.Length(); ok {
		res.Length = &length
	}
	return res, nil
}
