package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/store"
)

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceText(t *testing.T) {
	snaps := kingsPawn(t)
	dbPath := journal(t, "run-1", append(snaps, snaps[2])...)

	out, err := execute(t, "trace", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Run: run-1 (test)")
	assert.Contains(t, out, "[1] ffff00000000ffff -  [start]")
	assert.Contains(t, out, "[2] ffef00000000ffff -e2")
	assert.Contains(t, out, "[3] ffef00100000ffff +e4")
	assert.Contains(t, out, "[4] ffef00100000ffff -")
	assert.Contains(t, out, "Scans: 4 (2 with changes)")
	assert.Contains(t, out, "Transitions: 2")
	assert.Contains(t, out, "Start position seen: 1 time(s)")
}

func TestTraceChangesOnlyJSON(t *testing.T) {
	snaps := kingsPawn(t)
	dbPath := journal(t, "run-1", append(snaps, snaps[2])...)

	out, err := execute(t, "--format", "json", "trace", "--db", dbPath, "--run", "run-1", "--changes-only")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	var seqs []int64
	for _, sc := range resp.Data.Timeline {
		seqs = append(seqs, sc.Seq)
	}
	assert.Equal(t, []int64{1, 2, 3}, seqs, "the quiet fourth scan is dropped")
	assert.True(t, resp.Data.Timeline[0].Start)
	assert.Equal(t, board.StartPosition, resp.Data.Timeline[0].Snapshot)
	assert.Equal(t, 4, resp.Data.Stats.TotalScans)
}

func TestTraceBoards(t *testing.T) {
	dbPath := journal(t, "run-1", board.StartPosition)

	out, err := execute(t, "trace", "--db", dbPath, "--boards")
	require.NoError(t, err)
	assert.Contains(t, out, "8 x x x x x x x x")
	assert.Contains(t, out, "  a b c d e f g h")
}

func TestTraceEmptyJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	st.Close()

	_, err = execute(t, "trace", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal has no runs")
}

func TestFormatChanges(t *testing.T) {
	e2, err := board.ParseSquare("e2")
	require.NoError(t, err)
	assert.Equal(t, "-", formatChanges(nil))
	assert.Equal(t, "-e2", formatChanges(board.Diff(board.StartPosition, board.StartPosition.With(e2, false))))
}
