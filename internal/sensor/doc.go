// Package sensor produces occupancy snapshots for the engine.
//
// On hardware the board is 64 reed switches on four MCP23017 port expanders sharing one
// I2C bus (periph.io). Each expander covers two ranks, port A the lower one, and a bit is
// set when a piece closes its switch (after inversion for active-low wiring). The
// expanders' interrupt outputs are mirrored onto one GPIO line that EdgeWatcher waits on;
// Poller covers boards without that line.
//
// ScriptSource plays back YAML scan scripts so the whole pipeline runs without hardware.
package sensor
