package tracker

import (
	"errors"
	"fmt"

	"github.com/roach88/reedboard/internal/board"
)

// Code identifies which structural rule a lift/place sequence broke.
type Code string

const (
	// CodeUnknownPiece: a fresh lift on a square the game position says is empty.
	CodeUnknownPiece Code = "UNKNOWN_PIECE"

	// CodeHandFull: a third piece lifted while two are already in hand.
	CodeHandFull Code = "HAND_FULL"

	// CodeSameColor: a second lift of a piece the same color as the first.
	CodeSameColor Code = "SAME_COLOR"

	// CodeEmptyHand: a placement with nothing in hand.
	CodeEmptyHand Code = "EMPTY_HAND"

	// CodePlacementMismatch: two pieces in hand and the placement lands on neither origin.
	CodePlacementMismatch Code = "PLACEMENT_MISMATCH"
)

// ViolationError reports a transition the tracker cannot reconcile with the board.
type ViolationError struct {
	Code    Code
	Square  board.Square
	Message string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Square, e.Message)
}

func violation(code Code, sq board.Square, format string, args ...any) *ViolationError {
	return &ViolationError{Code: code, Square: sq, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the violation code carried by err, or "" when err is not a violation.
func CodeOf(err error) Code {
	var ve *ViolationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
