package indicator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/roach88/reedboard/internal/engine"
)

func pins() (red, yellow, green *gpiotest.Pin) {
	return &gpiotest.Pin{N: "RED", L: gpio.High},
		&gpiotest.Pin{N: "YELLOW", L: gpio.High},
		&gpiotest.Pin{N: "GREEN", L: gpio.High}
}

func TestLED_StartsOff(t *testing.T) {
	r, y, g := pins()
	_, err := NewLED(r, y, g)
	require.NoError(t, err)

	assert.Equal(t, gpio.Low, r.Read())
	assert.Equal(t, gpio.Low, y.Read())
	assert.Equal(t, gpio.Low, g.Read())
}

func TestLED_Show(t *testing.T) {
	tests := []struct {
		level            engine.Level
		red, yellow, grn gpio.Level
	}{
		{engine.LevelRed, gpio.High, gpio.Low, gpio.Low},
		{engine.LevelYellow, gpio.Low, gpio.High, gpio.Low},
		{engine.LevelGreen, gpio.Low, gpio.Low, gpio.High},
	}

	r, y, g := pins()
	led, err := NewLED(r, y, g)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			require.NoError(t, led.Show(tt.level))
			assert.Equal(t, tt.red, r.Read())
			assert.Equal(t, tt.yellow, y.Read())
			assert.Equal(t, tt.grn, g.Read())
		})
	}

	require.NoError(t, led.Off())
	assert.Equal(t, gpio.Low, g.Read())
}

type brokenIndicator struct{}

func (brokenIndicator) Show(engine.Level) error { return errors.New("driver gone") }

type recorder struct{ levels []engine.Level }

func (r *recorder) Show(l engine.Level) error {
	r.levels = append(r.levels, l)
	return nil
}

func TestMulti(t *testing.T) {
	rec := &recorder{}
	m := Multi{Log{}, brokenIndicator{}, rec}

	err := m.Show(engine.LevelYellow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver gone")
	assert.Equal(t, []engine.Level{engine.LevelYellow}, rec.levels, "one failure does not skip the rest")
}

func TestLED_DrivesEngine(t *testing.T) {
	r, y, g := pins()
	led, err := NewLED(r, y, g)
	require.NoError(t, err)

	var ind engine.Indicator = led
	require.NoError(t, ind.Show(engine.IndicatorFor(engine.StateActive, 1)))
	assert.Equal(t, gpio.High, y.Read())
}
