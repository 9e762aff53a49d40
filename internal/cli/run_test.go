package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/config"
	"github.com/roach88/reedboard/internal/store"
)

const openingScript = `name: opening
steps:
  - start: true
  - lift: e2
  - place: e4
  - lift: e7
  - place: e5
`

func TestRunScript(t *testing.T) {
	script := writeFile(t, "opening.yaml", openingScript)

	out, err := execute(t, "run", "--script", script)
	require.NoError(t, err)

	assert.Contains(t, out, "Board recognised. Ready to play.")
	assert.Contains(t, out, "White pawn e2 to e4.")
	assert.Contains(t, out, "Black pawn e7 to e5.")
	assert.Contains(t, out, "Stopped after 5 scans: active, 2 half-moves")
}

func TestRunScriptJournal(t *testing.T) {
	script := writeFile(t, "opening.yaml", openingScript)
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	_, err := execute(t, "run", "--script", script, "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	run, err := st.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "script:"+script, run.Source)
	assert.Equal(t, 5, run.Scans)

	snaps, err := st.Snapshots(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 5)
	assert.Equal(t, board.StartPosition, snaps[0])
}

func TestRunScriptJSON(t *testing.T) {
	script := writeFile(t, "opening.yaml", openingScript)

	out, err := execute(t, "--format", "json", "run", "--script", script)
	require.NoError(t, err)

	var kinds []string
	var last map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line), sc.Text())
		if k, ok := line["kind"].(string); ok {
			kinds = append(kinds, k)
		}
		last = line
	}
	assert.Equal(t, []string{"state", "move", "move"}, kinds, "scan notifications stay off the console")

	require.NotNil(t, last)
	assert.Equal(t, "ok", last["status"])
	data := last["data"].(map[string]any)
	assert.Equal(t, "active", data["state"])
	assert.Equal(t, float64(2), data["move_count"])
}

func TestRunMissingScript(t *testing.T) {
	_, err := execute(t, "run", "--script", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunSetupFailureStartsNothing(t *testing.T) {
	script := writeFile(t, "opening.yaml", openingScript)
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	out, err := execute(t, "run", "--script", script, "--db", dbPath,
		"--engine", filepath.Join(t.TempDir(), "no-such-engine"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, out, "no scan is played once setup has failed")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Zero(t, run.Scans)
}

func TestRunBadConfig(t *testing.T) {
	cfg := writeFile(t, "board.cue", "sensor: poll_ms: 1\n")
	_, err := execute(t, "run", "--config", cfg, "--script", "unused.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	opts := &RunOptions{Database: "scans.db", Listen: ":8080", Engine: "/usr/games/stockfish"}
	opts.applyOverrides(cfg)

	assert.Equal(t, "scans.db", cfg.Journal.Path)
	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.Equal(t, "/usr/games/stockfish", cfg.Search.Engine)

	untouched := config.Default()
	(&RunOptions{}).applyOverrides(untouched)
	assert.Equal(t, config.Default(), untouched)
}
