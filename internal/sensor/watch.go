package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Signaler is told that the board may have changed. engine.Engine implements it.
type Signaler interface {
	Signal(source string) bool
}

// edgeTimeout bounds each wait so cancellation is noticed promptly.
const edgeTimeout = 200 * time.Millisecond

// EdgeWatcher turns falling edges on the expanders' shared interrupt line into scan
// signals. It replaces a runtime callback registration: the waiting goroutine is the only
// place the edge is observed, and the engine's queue serialises what follows.
type EdgeWatcher struct {
	pin gpio.PinIO
	sig Signaler
}

// NewEdgeWatcher arms pin for falling edges with its pull-up on.
func NewEdgeWatcher(pin gpio.PinIO, sig Signaler) (*EdgeWatcher, error) {
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("arm interrupt pin %s: %w", pin, err)
	}
	return &EdgeWatcher{pin: pin, sig: sig}, nil
}

// OpenEdgeWatcher looks the pin up by name (e.g. "GPIO17").
func OpenEdgeWatcher(name string, sig Signaler) (*EdgeWatcher, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("interrupt pin %q not found", name)
	}
	return NewEdgeWatcher(pin, sig)
}

// Run signals once per edge until ctx is done or the engine stops accepting signals.
func (w *EdgeWatcher) Run(ctx context.Context) error {
	slog.Info("watching interrupt line", "pin", w.pin.Name())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !w.pin.WaitForEdge(edgeTimeout) {
			continue
		}
		if !w.sig.Signal("edge") {
			slog.Debug("edge watcher stopping: engine stopped")
			return nil
		}
	}
}

// Poller signals on a fixed interval. It backs up the interrupt line (a missed edge is
// picked up on the next tick) and drives boards wired without one.
type Poller struct {
	Interval time.Duration
	sig      Signaler
}

// NewPoller returns a poller; a zero interval means 100ms.
func NewPoller(interval time.Duration, sig Signaler) *Poller {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Poller{Interval: interval, sig: sig}
}

// Run signals every Interval until ctx is done or the engine stops accepting signals.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.sig.Signal("poll") {
				return nil
			}
		}
	}
}
