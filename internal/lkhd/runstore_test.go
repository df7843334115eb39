package lkhd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStoreCreateAndGet(t *testing.T) {
	store := NewRunStore()

	rec, err := store.Create("", squareInput())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Run.ID, "generated run id")
	assert.Equal(t, StatusPending, rec.Run.Status)
	assert.NotZero(t, rec.Run.CreatedAtUnixMs)

	got, ok := store.Get(rec.Run.ID)
	require.True(t, ok)
	assert.Equal(t, rec.Run.ID, got.Run.ID)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestRunStoreCreateDuplicate(t *testing.T) {
	store := NewRunStore()
	_, err := store.Create("run-1", squareInput())
	require.NoError(t, err)
	_, err = store.Create("run-1", squareInput())
	assert.ErrorIs(t, err, ErrRunExists)
}

func TestRunStoreCreateRejectsPathIDs(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"..", "a/b", `a\b`, "x:stop", "a b"} {
		_, err := store.Create(id, squareInput())
		assert.ErrorIs(t, err, ErrInvalidRunID, "id %q", id)
	}
}

func TestRunStoreSetStatusSetsTimestamps(t *testing.T) {
	store := NewRunStore()
	rec, err := store.Create("run-1", squareInput())
	require.NoError(t, err)
	assert.Zero(t, rec.Run.StartedAtUnixMs)
	assert.Zero(t, rec.Run.EndedAtUnixMs)

	running, err := store.SetStatus("run-1", StatusRunning, "")
	require.NoError(t, err)
	assert.NotZero(t, running.Run.StartedAtUnixMs)

	failed, err := store.SetStatus("run-1", StatusFailed, "boom")
	require.NoError(t, err)
	assert.NotZero(t, failed.Run.EndedAtUnixMs)
	assert.Equal(t, "boom", failed.Run.Error)

	// Terminal runs never change.
	_, err = store.SetStatus("run-1", StatusCompleted, "")
	assert.ErrorIs(t, err, ErrRunTerminal)
	_, err = store.SetStatus("nope", StatusRunning, "")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunStoreListNewestFirst(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Create(id, squareInput())
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := store.SetStatus("b", StatusFailed, "x")
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "b", "a"}, ids(store.List(0, "")))
	assert.Len(t, store.List(2, ""), 2)
	assert.Equal(t, []string{"b"}, ids(store.List(10, StatusFailed)))
}

func TestRunStoreReturnsCopies(t *testing.T) {
	store := NewRunStore()
	_, err := store.Create("run-1", squareInput())
	require.NoError(t, err)
	length := 4
	require.NoError(t, store.SetResult("run-1", &TourResult{
		Nodes:   []int{1, 2},
		NodeIDs: []string{"a", "b"},
		Length:  &length,
		Header:  map[string]any{"NAME": "square.tour", "DIMENSION": 2},
	}, 0, time.Second))

	rec, _ := store.Get("run-1")
	rec.Run.Status = StatusCompleted
	rec.Tour.Nodes[0] = 99
	rec.Tour.NodeIDs[0] = "z"
	rec.Tour.Header["NAME"] = "changed"
	delete(rec.Tour.Header, "DIMENSION")

	again, _ := store.Get("run-1")
	assert.Equal(t, StatusPending, again.Run.Status, "run mutated through copy")
	assert.Equal(t, 1, again.Tour.Nodes[0], "nodes mutated through copy")
	assert.Equal(t, "a", again.Tour.NodeIDs[0], "node ids mutated through copy")
	assert.Equal(t, map[string]any{"NAME": "square.tour", "DIMENSION": 2}, again.Tour.Header, "header mutated through copy")
	assert.EqualValues(t, 1000, again.Run.ElapsedMs)
	assert.Zero(t, again.Run.ExitCode)

	listed := store.List(1, "")
	require.Len(t, listed, 1)
	listed[0].Tour.Header["NAME"] = "listed"
	again, _ = store.Get("run-1")
	assert.Equal(t, "square.tour", again.Tour.Header["NAME"])
}

func TestParseRunStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, ParseRunStatus("completed"), "case-insensitive match")
	assert.Equal(t, RunStatus(""), ParseRunStatus("done"))
}

func ids(recs []*RunRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Run.ID)
	}
	return out
}
