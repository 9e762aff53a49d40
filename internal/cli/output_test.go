package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "scenarios failed")
	assert.Equal(t, "scenarios failed", err.Error())
	assert.Equal(t, ExitFailure, GetExitCode(err))

	cause := errors.New("no such file")
	wrapped := WrapExitError(ExitCommandError, "failed to open database", cause)
	assert.Equal(t, "failed to open database: no such file", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestGetExitCodePlainError(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
}

func TestFormatterSuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"scans": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"scans": float64(3)}, resp.Data)
}

func TestFormatterErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, f.Error("C003", "bad address", map[string]int{"line": 2}))
	assert.Contains(t, buf.String(), "Error [C003]: bad address")
	assert.Contains(t, buf.String(), "Details:")
}

func TestVerboseLogGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	f := newFormatter(&RootOptions{Format: "json", Verbose: true}, out, errOut)
	f.VerboseLog("reading %s", "board.cue")
	assert.Empty(t, out.String())
	assert.Equal(t, "reading board.cue\n", errOut.String())

	quiet := newFormatter(&RootOptions{Format: "text"}, out, errOut)
	quiet.VerboseLog("dropped")
	assert.NotContains(t, errOut.String(), "dropped")
}
