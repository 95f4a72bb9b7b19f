package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaphaelK12/blospray/pkg/export"
	"github.com/RaphaelK12/blospray/pkg/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestBeginFinish(t *testing.T) {
	s := openTestStore(t)

	r := &Render{Scene: "slices.yaml", Server: "localhost:5909", Frame: 3, Samples: 16}
	require.NoError(t, s.Begin(r))
	require.NotZero(t, r.ID)

	got, err := s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRunning, got.Outcome)
	assert.Nil(t, got.FinishedAt)

	r.ApplyReport(&export.Report{
		Objects:       4,
		MeshesSent:    1,
		MeshesReused:  2,
		MaterialsSent: 1,
		Duration:      250 * time.Millisecond,
		Diagnostics:   []error{errors.New("skipped")},
	})
	r.ApplyStats(session.Stats{Sample: 16, Samples: 16, Width: 64, Height: 48, Frames: 4, BytesReceived: 1024, PeakMemoryUsage: 33, Elapsed: 2 * time.Second})
	require.NoError(t, s.Finish(r, "done", nil))

	got, err = s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", got.Outcome)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.After(got.StartedAt))
	assert.Equal(t, 4, got.Objects)
	assert.Equal(t, 2, got.MeshesReused)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, int64(250), got.ExportMS)
	assert.Equal(t, uint32(16), got.SamplesDone)
	assert.Equal(t, uint32(64), got.Width)
	assert.Equal(t, int64(2000), got.RenderMS)
}

func TestFinishWithError(t *testing.T) {
	s := openTestStore(t)
	r := &Render{Scene: "a.yaml"}
	require.NoError(t, s.Begin(r))
	require.NoError(t, s.Finish(r, "connection_lost", errors.New("read: connection reset")))

	got, err := s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "connection_lost", got.Outcome)
	assert.Equal(t, "read: connection reset", got.Error)
}

func TestFinishBeforeBegin(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Finish(&Render{}, "done", nil))
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	for i, scene := range []string{"a.yaml", "b.yaml", "a.yaml"} {
		r := &Render{Scene: scene, Frame: i}
		require.NoError(t, s.Begin(r))
		outcome := "done"
		if i == 1 {
			outcome = "canceled"
		}
		require.NoError(t, s.Finish(r, outcome, nil))
	}

	all, err := s.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 2, all[0].Frame, "newest first")

	a, err := s.List(Filter{Scene: "a.yaml"})
	require.NoError(t, err)
	assert.Len(t, a, 2)

	canceled, err := s.List(Filter{Outcome: "canceled"})
	require.NoError(t, err)
	require.Len(t, canceled, 1)
	assert.Equal(t, "b.yaml", canceled[0].Scene)

	one, err := s.List(Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Begin(&Render{Frame: i}))
	}

	n, err := s.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	left, err := s.List(Filter{})
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, 4, left[0].Frame)
	assert.Equal(t, 3, left[1].Frame)

	n, err = s.Prune(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
