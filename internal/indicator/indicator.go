// Package indicator drives the operator's three-level status light.
package indicator

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/roach88/reedboard/internal/engine"
)

// LED lights one of three GPIO-driven LEDs and turns the other two off.
type LED struct {
	red, yellow, green gpio.PinOut
}

// NewLED returns an LED on the given pins, all off.
func NewLED(red, yellow, green gpio.PinOut) (*LED, error) {
	l := &LED{red: red, yellow: yellow, green: green}
	if err := l.set(nil); err != nil {
		return nil, err
	}
	return l, nil
}

// OpenLED looks the pins up by name.
func OpenLED(red, yellow, green string) (*LED, error) {
	var pins [3]gpio.PinIO
	for i, name := range []string{red, yellow, green} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("indicator pin %q not found", name)
		}
		pins[i] = p
	}
	return NewLED(pins[0], pins[1], pins[2])
}

// Show implements engine.Indicator.
func (l *LED) Show(level engine.Level) error {
	var on gpio.PinOut
	switch level {
	case engine.LevelGreen:
		on = l.green
	case engine.LevelYellow:
		on = l.yellow
	default:
		on = l.red
	}
	return l.set(on)
}

// Off turns every LED off.
func (l *LED) Off() error { return l.set(nil) }

func (l *LED) set(on gpio.PinOut) error {
	var errs error
	for _, p := range []gpio.PinOut{l.red, l.yellow, l.green} {
		lvl := gpio.Low
		if p == on {
			lvl = gpio.High
		}
		if err := p.Out(lvl); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("pin %s: %w", p, err))
		}
	}
	return errs
}

// Log reports the level through slog, for boards without LEDs and for simulation runs.
type Log struct{}

// Show implements engine.Indicator.
func (Log) Show(level engine.Level) error {
	slog.Info("indicator", "level", level)
	return nil
}

// Multi shows every level on all of its indicators.
type Multi []engine.Indicator

// Show implements engine.Indicator.
func (m Multi) Show(level engine.Level) error {
	var errs error
	for _, ind := range m {
		if err := ind.Show(level); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}
