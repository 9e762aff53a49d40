package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/tracker"
)

// DesyncKind separates the two ways tracking can be lost.
type DesyncKind string

const (
	// DesyncStructural: the transitions themselves cannot be a move (too many pieces in
	// hand, same-color double lift, placement on neither origin, too many squares changed).
	DesyncStructural DesyncKind = "STRUCTURAL"

	// DesyncRejected: the transitions form a move but the rules authority says it is illegal.
	DesyncRejected DesyncKind = "REJECTED"
)

// Engine-level desync codes. Tracker violations keep their tracker.Code.
const (
	CodeTooManyChanges = "TOO_MANY_CHANGES"
	CodeIllegalMove    = "ILLEGAL_MOVE"
)

// DesyncError is returned by Scan when it drives the engine into DESYNCED.
type DesyncError struct {
	Kind    DesyncKind
	Code    string
	Message string
	Seq     int64
	Session string

	// Move is set for rejected moves.
	Move *board.Move

	// Cause is the underlying tracker violation, if any.
	Cause error
}

func (e *DesyncError) Error() string {
	if e.Session != "" {
		return fmt.Sprintf("%s %s: %s (seq=%d, session=%s)", e.Kind, e.Code, e.Message, e.Seq, e.Session)
	}
	return fmt.Sprintf("%s %s: %s (seq=%d)", e.Kind, e.Code, e.Message, e.Seq)
}

func (e *DesyncError) Unwrap() error { return e.Cause }

// FaultError reports a collaborator that failed to answer. Engine state is left as it was;
// the next successful read clears the fault.
type FaultError struct {
	Op  string // "read_grid", "apply_move", "indicator"
	Err error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("fault during %s: %v", e.Op, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }

func structural(seq int64, session string, err error) *DesyncError {
	var ve *tracker.ViolationError
	if errors.As(err, &ve) {
		return &DesyncError{
			Kind:    DesyncStructural,
			Code:    string(ve.Code),
			Message: ve.Error(),
			Seq:     seq,
			Session: session,
			Cause:   err,
		}
	}
	return &DesyncError{Kind: DesyncStructural, Code: "UNKNOWN", Message: err.Error(), Seq: seq, Session: session, Cause: err}
}

// IsStructural reports whether err is a structural desync.
func IsStructural(err error) bool {
	var de *DesyncError
	if errors.As(err, &de) {
		return de.Kind == DesyncStructural
	}
	return false
}

// IsRejected reports whether err is a desync caused by an illegal move.
func IsRejected(err error) bool {
	var de *DesyncError
	if errors.As(err, &de) {
		return de.Kind == DesyncRejected
	}
	return false
}

// IsDesync reports whether err put the engine into DESYNCED.
func IsDesync(err error) bool {
	var de *DesyncError
	return errors.As(err, &de)
}

// IsFault reports whether err is a transport or collaborator fault.
func IsFault(err error) bool {
	var fe *FaultError
	return errors.As(err, &fe)
}
