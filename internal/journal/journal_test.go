package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maildesk/maildesk/internal/types"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMarkAndCheckProcessed(t *testing.T) {
	db := openTemp(t)

	assert.False(t, db.Processed("<abc@mail.example.com>"))
	require.NoError(t, db.MarkProcessed("<abc@mail.example.com>", 17, 42, true))
	assert.True(t, db.Processed("<abc@mail.example.com>"))
	assert.Equal(t, 1, db.ProcessedCount())

	// Duplicate marks are ignored, not errors.
	require.NoError(t, db.MarkProcessed("<abc@mail.example.com>", 17, 42, true))
	assert.Equal(t, 1, db.ProcessedCount())
}

func TestRecordRun(t *testing.T) {
	db := openTemp(t)
	s := &types.RunSummary{Direction: "inbound", Processed: 3, Failed: 1}
	require.NoError(t, db.RecordRun(s))
}

func TestRecentRunsNewestFirst(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.RecordRun(&types.RunSummary{Direction: "inbound", Processed: 2}))
	require.NoError(t, db.RecordRun(&types.RunSummary{Direction: "outbound", Processed: 1}))

	runs, err := db.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "outbound", runs[0].Direction)
	assert.Equal(t, "inbound", runs[1].Direction)
	assert.NotEmpty(t, runs[0].FinishedAt)
}
