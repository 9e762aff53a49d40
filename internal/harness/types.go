package harness

import (
	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/engine"
)

// TraceEntry is what one step did.
type TraceEntry struct {
	Step      int                `json:"step"`
	Action    string             `json:"action"` // "scan" or "new_game"
	Seq       int64              `json:"seq"`
	Snapshot  board.Snapshot     `json:"snapshot"`
	Changes   []board.Transition `json:"changes,omitempty"`
	Rearmed   bool               `json:"rearmed,omitempty"`
	Cancelled bool               `json:"cancelled,omitempty"`
	Move      string             `json:"move,omitempty"`
	SAN       string             `json:"san,omitempty"`
	State     engine.SyncState   `json:"state"`
	Indicator engine.Level       `json:"indicator"`
	Pending   int                `json:"pending"`
	Error     string             `json:"error,omitempty"`
}

// Final is the part of the end status that is stable across runs.
type Final struct {
	State     engine.SyncState `json:"state"`
	Indicator engine.Level     `json:"indicator"`
	Session   string           `json:"session,omitempty"`
	Turn      board.Color      `json:"turn"`
	MoveCount int              `json:"move_count"`
	GameOver  bool             `json:"game_over"`
	Result    string           `json:"result,omitempty"`
	Moves     []string         `json:"moves"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	Trace  []TraceEntry `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
	Final  Final        `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
