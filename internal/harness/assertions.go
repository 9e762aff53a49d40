package harness

import (
	"fmt"
	"strings"
)

// AssertionError is one expectation that did not hold.
type AssertionError struct {
	Step     int    // 0 for the final expectation
	Field    string // which expectation
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	where := "final"
	if e.Step > 0 {
		where = fmt.Sprintf("step %d", e.Step)
	}
	return fmt.Sprintf("%s: %s: expected %s, got %s", where, e.Field, e.Expected, e.Actual)
}

// checks collects assertion failures for one step or the final status.
type checks struct {
	step int
	errs []error
}

func (c *checks) eq(field, expected, actual string) {
	if expected != actual {
		c.errs = append(c.errs, &AssertionError{Step: c.step, Field: field, Expected: quote(expected), Actual: quote(actual)})
	}
}

func quote(s string) string {
	if s == "" {
		return "nothing"
	}
	return fmt.Sprintf("%q", s)
}

func checkStep(entry TraceEntry, want StepExpect) []error {
	c := &checks{step: entry.Step}

	if want.State != "" {
		c.eq("state", want.State, entry.State.String())
	}
	if want.Indicator != "" {
		c.eq("indicator", want.Indicator, entry.Indicator.String())
	}
	if want.Pending != nil {
		c.eq("pending", fmt.Sprint(*want.Pending), fmt.Sprint(entry.Pending))
	}
	if want.Rearmed != nil {
		c.eq("rearmed", fmt.Sprint(*want.Rearmed), fmt.Sprint(entry.Rearmed))
	}
	if want.Cancelled != nil {
		c.eq("cancelled", fmt.Sprint(*want.Cancelled), fmt.Sprint(entry.Cancelled))
	}
	if want.Move != "" {
		// Either notation names the move.
		got := entry.SAN
		if want.Move == entry.Move {
			got = entry.Move
		}
		c.eq("move", want.Move, got)
	}
	if want.Error != "" {
		c.eq("error", want.Error, entry.Error)
	}
	return c.errs
}

func checkFinal(got Final, want FinalExpect) []error {
	c := &checks{}

	if want.State != "" {
		c.eq("state", want.State, got.State.String())
	}
	if want.Indicator != "" {
		c.eq("indicator", want.Indicator, got.Indicator.String())
	}
	if want.Turn != "" {
		c.eq("turn", want.Turn, got.Turn.String())
	}
	if want.Moves != nil {
		c.eq("moves", strings.Join(want.Moves, " "), strings.Join(got.Moves, " "))
	}
	if want.MoveCount != nil {
		c.eq("move_count", fmt.Sprint(*want.MoveCount), fmt.Sprint(got.MoveCount))
	}
	if want.GameOver != nil {
		c.eq("game_over", fmt.Sprint(*want.GameOver), fmt.Sprint(got.GameOver))
	}
	if want.Result != "" {
		c.eq("result", want.Result, got.Result)
	}
	return c.errs
}
