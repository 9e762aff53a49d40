package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reedboard/internal/sensor"
)

// Scenario is one scripted game fragment with its expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Session is the id of the first tracking session. Defaults to the scenario name.
	Session string `yaml:"session,omitempty"`

	// Steps are read in order, one grid read each.
	Steps []Step `yaml:"steps"`

	// Expect is checked against the engine status after the last step.
	Expect *FinalExpect `yaml:"expect,omitempty"`
}

// Step is a scan-script step plus an optional new-game request and expectation.
type Step struct {
	sensor.Step `yaml:",inline"`

	// NewGame requests a new game before this step's read.
	NewGame bool `yaml:"new_game,omitempty"`

	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect is a subset match on the scan a step produced; empty fields are not checked.
type StepExpect struct {
	State     string `yaml:"state,omitempty"`
	Indicator string `yaml:"indicator,omitempty"`
	Pending   *int   `yaml:"pending,omitempty"`
	Move      string `yaml:"move,omitempty"`
	Rearmed   *bool  `yaml:"rearmed,omitempty"`
	Cancelled *bool  `yaml:"cancelled,omitempty"`
	Error     string `yaml:"error,omitempty"`
}

// FinalExpect is a subset match on the final engine status.
type FinalExpect struct {
	State     string   `yaml:"state,omitempty"`
	Indicator string   `yaml:"indicator,omitempty"`
	Turn      string   `yaml:"turn,omitempty"`
	Moves     []string `yaml:"moves,omitempty"`
	MoveCount *int     `yaml:"move_count,omitempty"`
	GameOver  *bool    `yaml:"game_over,omitempty"`
	Result    string   `yaml:"result,omitempty"`
}

var (
	validStates     = []string{"waiting_for_start", "active", "desynced"}
	validIndicators = []string{"red", "yellow", "green"}
)

// ParseScenario decodes a scenario, rejecting unknown fields.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if sc.Session == "" {
		sc.Session = sc.Name
	}
	return &sc, nil
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// FindScenarios lists the .yaml and .yml files under dir in name order. A non-empty filter
// is a glob matched against the file name without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files, err
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, st := range s.Steps {
		replaced := 0
		for _, set := range []bool{st.Start, st.Clear, st.Board != ""} {
			if set {
				replaced++
			}
		}
		if replaced > 1 {
			return fmt.Errorf("steps[%d]: start, clear and board are mutually exclusive", i)
		}
		if st.Expect == nil {
			continue
		}
		if err := checkName(st.Expect.State, validStates); err != nil {
			return fmt.Errorf("steps[%d].expect.state: %w", i, err)
		}
		if err := checkName(st.Expect.Indicator, validIndicators); err != nil {
			return fmt.Errorf("steps[%d].expect.indicator: %w", i, err)
		}
	}

	if s.Expect != nil {
		if err := checkName(s.Expect.State, validStates); err != nil {
			return fmt.Errorf("expect.state: %w", err)
		}
		if err := checkName(s.Expect.Indicator, validIndicators); err != nil {
			return fmt.Errorf("expect.indicator: %w", err)
		}
		if err := checkName(s.Expect.Turn, []string{"white", "black"}); err != nil {
			return fmt.Errorf("expect.turn: %w", err)
		}
	}
	return nil
}

func checkName(v string, valid []string) error {
	if v == "" {
		return nil
	}
	for _, ok := range valid {
		if v == ok {
			return nil
		}
	}
	return fmt.Errorf("unknown value %q (want one of %s)", v, strings.Join(valid, ", "))
}
