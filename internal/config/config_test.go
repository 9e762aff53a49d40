package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []uint16{0x20, 0x21, 0x22, 0x23}, cfg.Sensor.Addresses)
	assert.Equal(t, 100*time.Millisecond, cfg.Sensor.PollInterval())
	assert.False(t, cfg.Sensor.ActiveLow)
	assert.Empty(t, cfg.Sensor.InterruptPin)
	assert.False(t, cfg.Indicator.Enabled())
	assert.Equal(t, 500*time.Millisecond, cfg.Search.MoveTime())
	assert.Empty(t, cfg.API.Listen)
	assert.Empty(t, cfg.Journal.Path)
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_OverridesDefaults(t *testing.T) {
	src := `
sensor: {
	addresses:     [0x24, 0x25, 0x26, 0x27]
	interrupt_pin: "GPIO17"
	active_low:    true
}
indicator: {red: "GPIO5", yellow: "GPIO6", green: "GPIO13"}
search: engine: "/usr/games/stockfish"
api: listen:    ":8080"
journal: path:  "scans.db"
`
	cfg, err := Parse([]byte(src), "board.cue")
	require.NoError(t, err)

	assert.Equal(t, []uint16{0x24, 0x25, 0x26, 0x27}, cfg.Sensor.Addresses)
	assert.Equal(t, "GPIO17", cfg.Sensor.InterruptPin)
	assert.True(t, cfg.Sensor.ActiveLow)
	assert.Equal(t, 100, cfg.Sensor.PollMS, "unset fields keep their default")
	assert.True(t, cfg.Indicator.Enabled())
	assert.Equal(t, "/usr/games/stockfish", cfg.Search.Engine)
	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.Equal(t, "scans.db", cfg.Journal.Path)
}

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"sensor": {"poll_ms": 50}}`), "board.json")
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Sensor.PollInterval())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"syntax", "sensor: {", ErrCodeSyntax},
		{"unknown field", "sensor: colour: \"red\"", ErrCodeSchema},
		{"address out of range", "sensor: addresses: [0x20, 0x21, 0x22, 0x30]", ErrCodeSchema},
		{"three expanders", "sensor: addresses: [0x20, 0x21, 0x22]", ErrCodeSchema},
		{"poll too fast", "sensor: poll_ms: 1", ErrCodeSchema},
		{"wrong type", "api: listen: 8080", ErrCodeSchema},
		{"partial indicator", "indicator: red: \"GPIO5\"", ErrCodeSemantic},
		{"duplicate address", "sensor: addresses: [0x20, 0x20, 0x22, 0x23]", ErrCodeSemantic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le), "want *LoadError, got %T", err)
			assert.Equal(t, tt.code, le.Code, le.Error())
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reedboard.cue")
	require.NoError(t, os.WriteFile(path, []byte("journal: path: \"j.db\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "j.db", cfg.Journal.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeRead, le.Code)
}

func TestLoadError_Position(t *testing.T) {
	_, err := Parse([]byte("\n\nsensor: poll_ms: 1\n"), "pos.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C003")
}
