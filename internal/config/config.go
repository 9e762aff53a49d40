// Package config loads reedboard's CUE configuration.
//
// A config file is unified with the embedded #Config schema, which supplies every default
// and constraint, then validated as concrete and decoded into Config. A missing file means
// all defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	Sensor    SensorConfig    `json:"sensor"`
	Indicator IndicatorConfig `json:"indicator"`
	Search    SearchConfig    `json:"search"`
	API       APIConfig       `json:"api"`
	Journal   JournalConfig   `json:"journal"`
}

type SensorConfig struct {
	Bus          string   `json:"bus"`
	Addresses    []uint16 `json:"addresses"`
	InterruptPin string   `json:"interrupt_pin"`
	ActiveLow    bool     `json:"active_low"`
	PollMS       int      `json:"poll_ms"`
}

// PollInterval returns poll_ms as a duration.
func (s SensorConfig) PollInterval() time.Duration {
	return time.Duration(s.PollMS) * time.Millisecond
}

type IndicatorConfig struct {
	Red    string `json:"red"`
	Yellow string `json:"yellow"`
	Green  string `json:"green"`
}

// Enabled reports whether LED pins are configured.
func (i IndicatorConfig) Enabled() bool {
	return i.Red != "" || i.Yellow != "" || i.Green != ""
}

type SearchConfig struct {
	Engine string `json:"engine"`
	MoveMS int    `json:"move_ms"`
}

// MoveTime returns move_ms as a duration.
func (s SearchConfig) MoveTime() time.Duration {
	return time.Duration(s.MoveMS) * time.Millisecond
}

type APIConfig struct {
	Listen string `json:"listen"`
}

type JournalConfig struct {
	Path string `json:"path"`
}

// Error codes.
const (
	ErrCodeRead     = "C001" // file unreadable
	ErrCodeSyntax   = "C002" // not valid CUE
	ErrCodeSchema   = "C003" // violates #Config
	ErrCodeDecode   = "C004" // could not decode into Config
	ErrCodeSemantic = "C005" // valid per schema but inconsistent
)

// LoadError is a configuration problem, with the CUE position when there is one.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func loadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: cueerrors.Details(err, nil)}
	if pos := cueerrors.Positions(err); len(pos) > 0 {
		le.Pos = pos[0]
	}
	return le
}

// Default returns the schema defaults.
func Default() *Config {
	cfg, err := Parse(nil, "")
	if err != nil {
		// The embedded schema is fixed; failing here is a build defect.
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads a config file. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: err.Error()}
	}
	return Parse(data, path)
}

// Parse unifies CUE (or JSON) source with the schema and decodes it. filename is used in
// error positions.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, loadError(ErrCodeSyntax, err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := def
	if len(data) > 0 {
		user := ctx.CompileBytes(data, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, loadError(ErrCodeSyntax, err)
		}
		value = def.Unify(user)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, loadError(ErrCodeSchema, err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return nil, loadError(ErrCodeDecode, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks what the schema cannot express.
func (c *Config) Validate() error {
	ind := c.Indicator
	if ind.Enabled() && (ind.Red == "" || ind.Yellow == "" || ind.Green == "") {
		return &LoadError{Code: ErrCodeSemantic, Message: "indicator: set all three pins or none"}
	}
	seen := make(map[uint16]bool, len(c.Sensor.Addresses))
	for _, a := range c.Sensor.Addresses {
		if seen[a] {
			return &LoadError{Code: ErrCodeSemantic, Message: fmt.Sprintf("sensor.addresses: 0x%02x listed twice", a)}
		}
		seen[a] = true
	}
	return nil
}
