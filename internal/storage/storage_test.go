package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLedger_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.json")
	ledger, err := NewJobLedger(path)
	require.NoError(t, err)

	require.NoError(t, ledger.Add(&JobRecord{ID: "j1", Name: "Tartine", Location: "San Francisco"}))
	require.NoError(t, ledger.Add(&JobRecord{ID: "j2", Name: "Nowhere"}))
	require.NoError(t, ledger.Add(&JobRecord{ID: "j3", Name: "Quiet Place"}))

	job, ok := ledger.Get("j1")
	require.True(t, ok)
	assert.Equal(t, StatusPending, job.Status)
	assert.Len(t, ledger.GetPending(), 3)

	require.NoError(t, ledger.MarkRunning("j1"))
	require.NoError(t, ledger.Finish("j1", 42, 50, "reviews_data/reviews_Tartine.csv"))
	require.NoError(t, ledger.Fail("j2", "place_not_found"))
	require.NoError(t, ledger.Finish("j3", 0, 0, ""))

	job, _ = ledger.Get("j1")
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 42, job.Reviews)
	assert.Equal(t, 50, job.Expected)

	job, _ = ledger.Get("j3")
	assert.Equal(t, StatusEmpty, job.Status)

	assert.Equal(t, map[string]int{
		StatusCompleted: 1,
		StatusFailed:    1,
		StatusEmpty:     1,
		"total":         3,
	}, ledger.GetStats())

	reloaded, err := NewJobLedger(path)
	require.NoError(t, err)
	job, ok = reloaded.Get("j2")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "place_not_found", job.Error)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestJobLedger_Errors(t *testing.T) {
	ledger, err := NewJobLedger("")
	require.NoError(t, err)

	assert.Error(t, ledger.Add(&JobRecord{Name: "no id"}))
	assert.ErrorIs(t, ledger.MarkRunning("missing"), ErrJobNotFound)
}

func TestJobLedger_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJobLedger(path)
	assert.Error(t, err)
}

func TestJobLedger_GetReturnsCopy(t *testing.T) {
	ledger, err := NewJobLedger("")
	require.NoError(t, err)
	require.NoError(t, ledger.Add(&JobRecord{ID: "j1", Name: "Cafe"}))

	job, _ := ledger.Get("j1")
	job.Status = StatusFailed

	stored, _ := ledger.Get("j1")
	assert.Equal(t, StatusPending, stored.Status)
}

func TestJobLedger_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	ledger, err := NewJobLedger(path)
	require.NoError(t, err)
	require.NoError(t, ledger.Add(&JobRecord{ID: "j1", Name: "Cafe"}))
	require.NoError(t, ledger.Add(&JobRecord{ID: "j2", Name: "Bakery"}))

	require.NoError(t, ledger.Remove("j1"))
	require.NoError(t, ledger.Remove("unknown"))

	_, ok := ledger.Get("j1")
	assert.False(t, ok)

	reloaded, err := NewJobLedger(path)
	require.NoError(t, err)
	pending := reloaded.GetPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "j2", pending[0].ID)
}
