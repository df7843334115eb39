package lkhd

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/config"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusPending   RunStatus = "PENDING"
	StatusRunning   RunStatus = "RUNNING"
	StatusCompleted RunStatus = "COMPLETED"
	StatusFailed    RunStatus = "FAILED"
	StatusCancelled RunStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseRunStatus accepts any letter case and returns "" for unknown names.
func ParseRunStatus(s string) RunStatus {
	switch st := RunStatus(strings.ToUpper(s)); st {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return st
	}
	return ""
}

// RunInput is what a client submits.
type RunInput struct {
	Problem config.ProblemSpec `json:"problem"`
	// Precision overrides the daemon's quantization precision.
	Precision *int `json:"precision,omitempty"`
	// Parameters are schema options by name, applied with lkh.Parameters.Set.
	// Values may be JSON strings, numbers or booleans.
	Parameters map[string]any `json:"parameters,omitempty"`
	// Extra are free-form solver options, applied with lkh.Parameters.SetExtra.
	Extra map[string]string `json:"extra,omitempty"`
}

// Run is the externally visible run state.
type Run struct {
	ID              string    `json:"id"`
	Status          RunStatus `json:"status"`
	CreatedAtUnixMs int64     `json:"created_at_unix_ms"`
	StartedAtUnixMs int64     `json:"started_at_unix_ms"`
	EndedAtUnixMs   int64     `json:"ended_at_unix_ms"`
	Error           string    `json:"error,omitempty"`
	ExitCode        int       `json:"exit_code"`
	ElapsedMs       int64     `json:"elapsed_ms"`
}

// TourResult is a solved tour in both index and node-ID form.
type TourResult struct {
	Name    string         `json:"name,omitempty"`
	Nodes   []int          `json:"nodes"`
	NodeIDs []string       `json:"node_ids"`
	Length  *int           `json:"length,omitempty"`
	Header  map[string]any `json:"header,omitempty"`
}

type RunRecord struct {
	Run Run
	// Input is shared by every copy and must not be modified after Create.
	Input *RunInput
	Tour  *TourResult
}

// RunStore keeps runs in memory. Accessors return copies of the run and its
// tour; the submitted input is shared read-only.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// validRunID keeps IDs usable as a directory name and as a URL path segment.
func validRunID(id string) error {
	if id == "." || id == ".." || strings.ContainsAny(id, `/\:?#% `) {
		return fmt.Errorf("%w: %q cannot contain path or URL separators", ErrInvalidRunID, id)
	}
	return nil
}

func (s *RunStore) Create(runID string, input *RunInput) (*RunRecord, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := validRunID(runID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}
	rec := &RunRecord{
		Run: Run{
			ID:              runID,
			Status:          StatusPending,
			CreatedAtUnixMs: nowUnixMs(),
			ExitCode:        -1,
		},
		Input: input,
	}
	s.runs[runID] = rec
	return rec.clone(), nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// List returns up to limit runs, newest first, optionally filtered by status.
func (s *RunStore) List(limit int, status RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*RunRecord, 0, min(limit, len(s.runs)))
	for _, rec := range s.runs {
		if status != "" && rec.Run.Status != status {
			continue
		}
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Run.CreatedAtUnixMs != out[j].Run.CreatedAtUnixMs {
			return out[i].Run.CreatedAtUnixMs > out[j].Run.CreatedAtUnixMs
		}
		return out[i].Run.ID < out[j].Run.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SetStatus moves a run to status. A terminal run never changes again.
func (s *RunStore) SetStatus(runID string, status RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.Terminal() {
		return rec.clone(), fmt.Errorf("%w: %s is %s", ErrRunTerminal, runID, rec.Run.Status)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}
	switch status {
	case StatusRunning:
		if rec.Run.StartedAtUnixMs == 0 {
			rec.Run.StartedAtUnixMs = nowUnixMs()
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		rec.Run.EndedAtUnixMs = nowUnixMs()
	}
	return rec.clone(), nil
}

// SetResult records what the solver process reported.
func (s *RunStore) SetResult(runID string, tour *TourResult, exitCode int, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Tour = tour
	rec.Run.ExitCode = exitCode
	rec.Run.ElapsedMs = elapsed.Milliseconds()
	return nil
}

func (r *RunRecord) clone() *RunRecord {
	c := *r
	if r.Tour != nil {
		t := *r.Tour
		t.Nodes = append([]int(nil), r.Tour.Nodes...)
		t.NodeIDs = append([]string(nil), r.Tour.NodeIDs...)
		// Header values are scalars, so a shallow map copy suffices.
		t.Header = maps.Clone(r.Tour.Header)
		c.Tour = &t
	}
	return &c
}
