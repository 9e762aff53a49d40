package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where golden traces live, relative to a test's package directory.
const GoldenDir = "testdata/golden"

// TraceSnapshot is the golden-file form of a run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEntry `json:"trace"`
	Final        Final        `json:"final"`
}

// MarshalTrace renders a run the way golden files store it: indented JSON and a trailing
// newline. The same scenario always renders to the same bytes.
func MarshalTrace(sc *Scenario, res *Result) ([]byte, error) {
	data, err := json.MarshalIndent(TraceSnapshot{
		ScenarioName: sc.Name,
		Trace:        res.Trace,
		Final:        res.Final,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// GoldenPath returns the golden file for a scenario in dir.
func GoldenPath(dir string, sc *Scenario) string {
	return filepath.Join(dir, sc.Name+".golden")
}

// CompareGolden reports whether the run matches the golden file in dir.
func CompareGolden(dir string, sc *Scenario, res *Result) (bool, error) {
	want, err := os.ReadFile(GoldenPath(dir, sc))
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := MarshalTrace(sc, res)
	if err != nil {
		return false, fmt.Errorf("failed to marshal trace: %w", err)
	}
	return bytes.Equal(want, got), nil
}

// UpdateGolden writes the run as the golden file in dir.
func UpdateGolden(dir string, sc *Scenario, res *Result) error {
	data, err := MarshalTrace(sc, res)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(GoldenPath(dir, sc), data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) (*Result, error) {
	t.Helper()

	res, err := Run(sc)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, sc, res); err != nil {
		return nil, err
	}
	return res, nil
}

// AssertGolden compares an existing run against its golden file.
func AssertGolden(t *testing.T, sc *Scenario, res *Result) error {
	t.Helper()

	data, err := MarshalTrace(sc, res)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return nil
}
