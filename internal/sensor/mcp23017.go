package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// MCP23017 registers (IOCON.BANK = 0 layout).
const (
	regIODIRA   = 0x00
	regIODIRB   = 0x01
	regGPINTENA = 0x04
	regGPINTENB = 0x05
	regIOCON    = 0x0A
	regGPPUA    = 0x0C
	regGPPUB    = 0x0D
	regGPIOA    = 0x12
	regGPIOB    = 0x13
)

// IOCON bits.
const (
	ioconMirror = 1 << 6 // INTA and INTB wired together
	ioconODR    = 1 << 2 // open-drain interrupt output
)

// BaseAddress is the expander address with A0-A2 tied low.
const BaseAddress = 0x20

// Expander is one MCP23017 16-bit port expander: two ranks of eight reed switches.
type Expander struct {
	dev *i2c.Dev
}

// NewExpander configures the expander at addr: every pin an input with its pull-up on.
func NewExpander(bus i2c.Bus, addr uint16) (*Expander, error) {
	x := &Expander{dev: &i2c.Dev{Bus: bus, Addr: addr}}

	for _, w := range [][2]byte{
		{regIODIRA, 0xFF},
		{regIODIRB, 0xFF},
		{regGPPUA, 0xFF},
		{regGPPUB, 0xFF},
	} {
		if err := x.write(w[0], w[1]); err != nil {
			return nil, fmt.Errorf("init expander 0x%02x: %w", addr, err)
		}
	}
	return x, nil
}

// EnableInterrupts turns on interrupt-on-change for all sixteen pins, with both interrupt
// outputs mirrored onto one open-drain line. Reading the ports clears the interrupt.
func (x *Expander) EnableInterrupts() error {
	for _, w := range [][2]byte{
		{regIOCON, ioconMirror | ioconODR},
		{regGPINTENA, 0xFF},
		{regGPINTENB, 0xFF},
	} {
		if err := x.write(w[0], w[1]); err != nil {
			return fmt.Errorf("enable interrupts on 0x%02x: %w", x.dev.Addr, err)
		}
	}
	return nil
}

// ReadPorts reads GPIOA and GPIOB in one sequential transfer.
func (x *Expander) ReadPorts() (a, b uint8, err error) {
	var r [2]byte
	if err := x.dev.Tx([]byte{regGPIOA}, r[:]); err != nil {
		return 0, 0, fmt.Errorf("read expander 0x%02x: %w", x.dev.Addr, err)
	}
	return r[0], r[1], nil
}

// Addr returns the expander's bus address.
func (x *Expander) Addr() uint16 { return x.dev.Addr }

func (x *Expander) write(reg, val byte) error {
	return x.dev.Tx([]byte{reg, val}, nil)
}
