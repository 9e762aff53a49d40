package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	out, err := execute(t, "validate")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ default config is valid")
	assert.Contains(t, out, "sensor:    bus first available, expanders 0x20 0x21 0x22 0x23, poll every 100ms")
	assert.Contains(t, out, "indicator: log only")
	assert.Contains(t, out, "journal:   disabled")
}

func TestValidateFile(t *testing.T) {
	path := writeFile(t, "board.cue", `
sensor: {
	interrupt_pin: "GPIO17"
	active_low:    true
}
indicator: {red: "GPIO5", yellow: "GPIO6", green: "GPIO13"}
journal: path: "scans.db"
`)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ "+path+" is valid")
	assert.Contains(t, out, "interrupt on GPIO17, active low")
	assert.Contains(t, out, "indicator: red GPIO5, yellow GPIO6, green GPIO13")
	assert.Contains(t, out, "journal:   scans.db")
}

func TestValidateUsesConfigFlag(t *testing.T) {
	path := writeFile(t, "board.cue", `api: listen: ":8080"`+"\n")

	out, err := execute(t, "--config", path, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "api:       :8080")
}

func TestValidateInvalidJSON(t *testing.T) {
	path := writeFile(t, "board.cue", "sensor: addresses: [0x20, 0x21, 0x22, 0x30]\n")

	out, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "C003", resp.Error.Code)
}

func TestValidateMissingFile(t *testing.T) {
	out, err := execute(t, "validate", "does-not-exist.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [C001]")
}
