package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/reedboard/internal/engine"
	"github.com/roach88/reedboard/internal/rules"
	"github.com/roach88/reedboard/internal/sensor"
)

// Run executes a scenario against a fresh engine and a real rules authority.
func Run(sc *Scenario) (*Result, error) {
	return RunContext(context.Background(), sc)
}

// RunContext is Run with a caller-supplied context.
//
// The returned error is reserved for scenarios that cannot be run at all (a bad square name,
// a cancelled context); desyncs and faults are part of the trace.
func RunContext(ctx context.Context, sc *Scenario) (*Result, error) {
	steps := make([]sensor.Step, len(sc.Steps))
	for i, st := range sc.Steps {
		steps[i] = st.Step
	}
	src, err := sensor.NewScriptSource(&sensor.Script{Name: sc.Name, Steps: steps})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	session := sc.Session
	if session == "" {
		session = sc.Name
	}
	eng := engine.New(src, rules.NewGame(),
		engine.WithSessions(engine.NewFixedGenerator(session)),
	)

	result := NewResult()
	moves := []string{}

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		action := "scan"
		var (
			sr      engine.ScanResult
			scanErr error
		)
		if st.NewGame {
			action = "new_game"
			sr, scanErr = eng.NewGame(ctx)
		} else {
			sr, scanErr = eng.Scan(ctx)
		}
		if scanErr != nil && !engine.IsDesync(scanErr) && !engine.IsFault(scanErr) {
			return nil, fmt.Errorf("step %d: %w", i+1, scanErr)
		}

		entry := traceEntry(i+1, action, sr, scanErr)
		result.Trace = append(result.Trace, entry)
		if sr.Move != nil {
			moves = append(moves, sr.Move.SAN)
		}

		if st.Expect != nil {
			for _, err := range checkStep(entry, *st.Expect) {
				result.AddError(err.Error())
			}
		}
	}

	st := eng.Status()
	result.Final = Final{
		State:     st.State,
		Indicator: st.Indicator,
		Session:   st.Session,
		Turn:      st.Turn,
		MoveCount: st.MoveCount,
		GameOver:  st.GameOver,
		Result:    st.Result,
		Moves:     moves,
	}
	if sc.Expect != nil {
		for _, err := range checkFinal(result.Final, *sc.Expect) {
			result.AddError(err.Error())
		}
	}

	return result, nil
}

func traceEntry(step int, action string, sr engine.ScanResult, err error) TraceEntry {
	entry := TraceEntry{
		Step:      step,
		Action:    action,
		Seq:       sr.Seq,
		Snapshot:  sr.Snapshot,
		Changes:   sr.Changes,
		Rearmed:   sr.Rearmed,
		Cancelled: sr.Cancelled,
		State:     sr.State,
		Indicator: sr.Indicator,
		Pending:   sr.Pending,
		Error:     errorLabel(err),
	}
	if sr.Move != nil {
		entry.Move = sr.Move.Move.UCI()
		entry.SAN = sr.Move.SAN
	}
	return entry
}

// errorLabel reduces a scan error to something stable enough for a golden file.
func errorLabel(err error) string {
	var de *engine.DesyncError
	if errors.As(err, &de) {
		return de.Code
	}
	var fe *engine.FaultError
	if errors.As(err, &fe) {
		return "fault:" + fe.Op
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
