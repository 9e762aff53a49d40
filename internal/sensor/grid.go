package sensor

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/roach88/reedboard/internal/board"
)

// Expanders is how many MCP23017s make up the grid: each covers two ranks.
const Expanders = 4

// GridOptions describes the wiring of the reed switch grid.
type GridOptions struct {
	// Bus is the periph I2C bus name ("" = first available).
	Bus string
	// Addresses lists the four expanders, 1st and 2nd rank first.
	Addresses []uint16
	// ActiveLow: a present piece pulls its pin low.
	ActiveLow bool
	// Interrupts enables interrupt-on-change on every expander.
	Interrupts bool
}

// DefaultAddresses are the expanders at 0x20-0x23.
func DefaultAddresses() []uint16 {
	return []uint16{BaseAddress, BaseAddress + 1, BaseAddress + 2, BaseAddress + 3}
}

// Grid reads the whole board from four expanders. It implements engine.GridSource.
type Grid struct {
	expanders []*Expander
	activeLow bool
	closers   []io.Closer
}

// NewGrid configures the expanders on an already open bus. The caller keeps ownership of
// the bus.
func NewGrid(bus i2c.Bus, opts GridOptions) (*Grid, error) {
	addrs := opts.Addresses
	if len(addrs) == 0 {
		addrs = DefaultAddresses()
	}
	if len(addrs) != Expanders {
		return nil, fmt.Errorf("grid needs %d expander addresses, got %d", Expanders, len(addrs))
	}

	g := &Grid{activeLow: opts.ActiveLow}
	for _, addr := range addrs {
		x, err := NewExpander(bus, addr)
		if err != nil {
			return nil, err
		}
		if opts.Interrupts {
			if err := x.EnableInterrupts(); err != nil {
				return nil, err
			}
		}
		g.expanders = append(g.expanders, x)
	}
	return g, nil
}

// OpenGrid initialises the host drivers, opens the I2C bus and configures the grid. Close
// releases the bus.
func OpenGrid(opts GridOptions) (*Grid, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	bus, err := i2creg.Open(opts.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", opts.Bus, err)
	}

	g, err := NewGrid(bus, opts)
	if err != nil {
		if cerr := bus.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
		return nil, err
	}
	g.closers = append(g.closers, bus)

	slog.Info("reed grid ready",
		"bus", bus.String(),
		"expanders", len(g.expanders),
		"active_low", opts.ActiveLow,
	)
	return g, nil
}

// Read returns a fresh snapshot. Expander n supplies ranks 2n+1 and 2n+2.
func (g *Grid) Read(ctx context.Context) (board.Snapshot, error) {
	var snap board.Snapshot
	if err := ctx.Err(); err != nil {
		return snap, err
	}
	for i, x := range g.expanders {
		a, b, err := x.ReadPorts()
		if err != nil {
			return board.Snapshot{}, err
		}
		snap[2*i] = a
		snap[2*i+1] = b
	}
	if g.activeLow {
		snap = snap.Invert()
	}
	return snap, nil
}

// Close releases everything the grid opened.
func (g *Grid) Close() error {
	var errs error
	for _, c := range g.closers {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	g.closers = nil
	return errs
}
