package engine

import (
	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/tracker"
)

// SyncState is the engine's confidence that its tracking matches the physical board.
type SyncState int

const (
	// StateWaitingForStart: no session yet; waiting for the start position.
	StateWaitingForStart SyncState = iota
	// StateActive: tracking moves.
	StateActive
	// StateDesynced: tracking lost; only a fresh start position recovers.
	StateDesynced
)

func (s SyncState) String() string {
	switch s {
	case StateWaitingForStart:
		return "waiting_for_start"
	case StateActive:
		return "active"
	case StateDesynced:
		return "desynced"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s SyncState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Level is the three-state operator indicator.
type Level int

const (
	LevelRed Level = iota
	LevelYellow
	LevelGreen
)

func (l Level) String() string {
	switch l {
	case LevelGreen:
		return "green"
	case LevelYellow:
		return "yellow"
	default:
		return "red"
	}
}

// MarshalText renders the level name in JSON.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// IndicatorFor maps the current state and the number of pieces in hand to a level. It
// depends on nothing else, so the same state always shows the same level.
func IndicatorFor(state SyncState, pending int) Level {
	if state != StateActive {
		return LevelRed
	}
	if pending > 0 {
		return LevelYellow
	}
	return LevelGreen
}

// Indicator displays a level. Implementations must return quickly; a failing indicator
// is logged and never changes engine state.
type Indicator interface {
	Show(level Level) error
}

// Status is a consistent copy of everything the query side may ask about.
type Status struct {
	State     SyncState             `json:"state"`
	Indicator Level                 `json:"indicator"`
	Session   string                `json:"session,omitempty"`
	Seq       int64                 `json:"seq"`
	Turn      board.Color           `json:"turn"`
	MoveCount int                   `json:"move_count"`
	GameOver  bool                  `json:"game_over"`
	Result    string                `json:"result,omitempty"`
	FEN       string                `json:"fen,omitempty"`
	Pending   []tracker.PendingLift `json:"pending"`
	LastMove  *board.Move           `json:"last_move,omitempty"`
	Fault     string                `json:"fault,omitempty"`
	Desync    string                `json:"desync,omitempty"`
	Snapshot  board.Snapshot        `json:"snapshot"`
}
