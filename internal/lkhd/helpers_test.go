package lkhd

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/config"
	"github.com/GoSim-25-26J-441/lkh-solver/pkg/lkh"
	"github.com/GoSim-25-26J-441/lkh-solver/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSolver writes the tour 1..DIMENSION to the file named in the .par.
const fakeSolver = `#!/bin/sh
par="$1"
tour=$(sed -n 's/^OUTPUT_TOUR_FILE = //p' "$par")
problem=$(sed -n 's/^PROBLEM_FILE = //p' "$par")
dim=$(sed -n 's/^DIMENSION: //p' "$problem")
{
  echo "NAME : fake.tour"
  echo "COMMENT : Length = 4"
  echo "DIMENSION : $dim"
  echo "TOUR_SECTION"
  i=1
  while [ "$i" -le "$dim" ]; do echo "$i"; i=$((i+1)); done
  echo "-1"
  echo "EOF"
} > "$tour"
`

const sleepySolver = "#!/bin/sh\nexec sleep 30\n"

const silentSolver = "#!/bin/sh\nexit 2\n"

func newTestExecutor(t *testing.T, script string, maxConcurrent int64) (*RunStore, *RunExecutor, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake solver needs /bin/sh")
	}
	bin := filepath.Join(t.TempDir(), "fake-lkh")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	solver, err := lkh.NewSolver(bin, lkh.WithLogger(logger.Discard()))
	require.NoError(t, err)

	params := lkh.DefaultParameters()
	params.TraceLevel = 0
	workRoot := t.TempDir()
	store := NewRunStore()
	executor := NewRunExecutor(store, solver, ExecutorConfig{
		WorkRoot:      workRoot,
		MaxConcurrent: maxConcurrent,
		Precision:     2,
		Parameters:    params,
		Logger:        logger.Discard(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		assert.NoError(t, executor.Shutdown(ctx), "shutdown")
	})
	return store, executor, workRoot
}

func squareInput() *RunInput {
	return &RunInput{
		Problem: config.ProblemSpec{
			Name:  "square",
			Type:  "tsp",
			Nodes: []string{"a", "b", "c", "d"},
			Edges: []config.EdgeSpec{
				{From: "a", To: "b", Weight: 1},
				{From: "b", To: "c", Weight: 1},
				{From: "c", To: "d", Weight: 1},
				{From: "d", To: "a", Weight: 1},
				{From: "a", To: "c", Weight: 1.5},
				{From: "b", To: "d", Weight: 1.5},
			},
		},
	}
}

func waitForStatus(t *testing.T, store *RunStore, runID string, want RunStatus) *RunRecord {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := store.Get(runID)
		require.True(t, ok, "run %s not found", runID)
		if rec.Run.Status == want {
			return rec
		}
		require.False(t, rec.Run.Status.Terminal(), "run %s ended %s (%s), want %s", runID, rec.Run.Status, rec.Run.Error, want)
		time.Sleep(10 * time.Millisecond)
	}
	require.FailNow(t, "timed out", "run %s did not reach %s", runID, want)
	return nil
}
