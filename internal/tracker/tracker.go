// Package tracker turns per-square lift and place transitions into resolved moves.
//
// Reed switches only report presence, so the tracker keeps the squares whose pieces are
// currently "in hand". At most two may be in hand, and a second one is accepted only when it
// belongs to the opposite side: that is the capture pattern, where the capturing piece then
// lands on the square the captured piece was lifted from.
//
// The tracker never repairs itself. A transition it cannot reconcile is returned as a
// *ViolationError and the caller decides what happens next (the engine desynchronizes and
// resets it).
package tracker

import (
	"sort"

	"github.com/roach88/reedboard/internal/board"
)

// MaxPending is the number of pieces that may be in hand at once.
const MaxPending = 2

// Lookup answers what the game position has on a square. It is consulted before the lifted
// piece is removed from the game, so it reflects the board prior to the move.
type Lookup interface {
	PieceAt(sq board.Square) board.Piece
}

// PendingLift is a square whose piece has been lifted and not yet put down.
type PendingLift struct {
	Origin board.Square `json:"origin"`
	Piece  board.Piece  `json:"piece"`
}

// OutcomeKind says what a processed transition amounted to.
type OutcomeKind int

const (
	// OutcomeNone: the transition was absorbed, nothing to hand on.
	OutcomeNone OutcomeKind = iota
	// OutcomeResolved: Move holds a complete move.
	OutcomeResolved
	// OutcomeCancelled: a piece was lifted and put back on its own square.
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResolved:
		return "resolved"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Outcome is the result of feeding transitions to the tracker.
type Outcome struct {
	Kind OutcomeKind
	Move board.Move

	// Mover is the piece that moved; Captured the piece that was taken, if any.
	Mover    board.Piece
	Captured board.Piece
}

// Tracker is not safe for concurrent use; the engine's event loop is its only caller.
type Tracker struct {
	lifts [MaxPending]PendingLift
	n     int
	last  board.Kind
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// Len returns the number of pieces in hand.
func (t *Tracker) Len() int { return t.n }

// Pending returns a copy of the pieces in hand, in lift order.
func (t *Tracker) Pending() []PendingLift {
	out := make([]PendingLift, t.n)
	copy(out, t.lifts[:t.n])
	return out
}

// LastAction returns the kind of the last accepted transition, or 0 after a reset.
func (t *Tracker) LastAction() board.Kind { return t.last }

// Reset empties the hand and forgets the last action.
func (t *Tracker) Reset() {
	t.lifts = [MaxPending]PendingLift{}
	t.n = 0
	t.last = 0
}

// Lift records that the piece on sq left the board.
//
// After a placement (or from empty) the lift starts a new sequence. After another lift it is
// the second half of a capture and must be a piece of the other color.
func (t *Tracker) Lift(sq board.Square, lookup Lookup) error {
	piece := lookup.PieceAt(sq)

	if t.last != board.Lift || t.n == 0 {
		if piece.Empty() {
			return violation(CodeUnknownPiece, sq, "no piece on %s in the game position", sq)
		}
		t.Reset()
		t.lifts[0] = PendingLift{Origin: sq, Piece: piece}
		t.n = 1
		t.last = board.Lift
		return nil
	}

	if t.n >= MaxPending {
		return violation(CodeHandFull, sq, "already holding %s and %s", t.lifts[0].Origin, t.lifts[1].Origin)
	}
	first := t.lifts[0].Piece
	if piece.Empty() || piece.Color != first.Color.Opposite() {
		return violation(CodeSameColor, sq, "%s lifted while %s from %s is in hand", piece, first, t.lifts[0].Origin)
	}

	t.lifts[t.n] = PendingLift{Origin: sq, Piece: piece}
	t.n++
	t.last = board.Lift
	return nil
}

// Place records that a piece arrived on sq and resolves the sequence in hand.
//
// With one piece in hand the move is a plain move from its origin. With two in hand the
// placement must land on one of the origins: that origin held the captured piece and the
// other origin is where the capturing piece came from.
func (t *Tracker) Place(sq board.Square) (Outcome, error) {
	switch t.n {
	case 1:
		lift := t.lifts[0]
		t.Reset()
		t.last = board.Place
		if lift.Origin == sq {
			return Outcome{Kind: OutcomeCancelled, Mover: lift.Piece}, nil
		}
		return Outcome{
			Kind:  OutcomeResolved,
			Move:  board.Move{From: lift.Origin, To: sq},
			Mover: lift.Piece,
		}, nil

	case 2:
		var mover, captured PendingLift
		switch sq {
		case t.lifts[0].Origin:
			captured, mover = t.lifts[0], t.lifts[1]
		case t.lifts[1].Origin:
			captured, mover = t.lifts[1], t.lifts[0]
		default:
			return Outcome{}, violation(CodePlacementMismatch, sq,
				"holding %s and %s, placed on neither", t.lifts[0].Origin, t.lifts[1].Origin)
		}
		t.Reset()
		t.last = board.Place
		return Outcome{
			Kind:     OutcomeResolved,
			Move:     board.Move{From: mover.Origin, To: sq, Capture: true},
			Mover:    mover.Piece,
			Captured: captured.Piece,
		}, nil

	default:
		return Outcome{}, violation(CodeEmptyHand, sq, "placement with no piece in hand")
	}
}

// Apply feeds the transitions of one scan. Lifts are processed before placements so a move
// completed within a single scan resolves whatever the square order; within each group the
// scan order is kept. Processing stops at the first violation.
//
// With a lift already in hand the scan may instead hold the placement that completes it
// and the opponent's first lift. When lifts-first ends in a violation, the scan is retried
// from the same hand with placements first before the violation is reported.
func (t *Tracker) Apply(changes []board.Transition, lookup Lookup) (Outcome, error) {
	held := t.last == board.Lift && t.n > 0
	saved := *t

	out, err := t.apply(changes, lookup, board.Lift)
	if err == nil || !held {
		return out, err
	}

	retry := saved
	if alt, altErr := retry.apply(changes, lookup, board.Place); altErr == nil {
		*t = retry
		return alt, nil
	}
	*t = saved
	return Outcome{}, err
}

func (t *Tracker) apply(changes []board.Transition, lookup Lookup, first board.Kind) (Outcome, error) {
	ordered := make([]board.Transition, len(changes))
	copy(ordered, changes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind == first && ordered[j].Kind != first
	})

	var out Outcome
	for _, c := range ordered {
		switch c.Kind {
		case board.Lift:
			if err := t.Lift(c.Square, lookup); err != nil {
				return Outcome{}, err
			}
		case board.Place:
			res, err := t.Place(c.Square)
			if err != nil {
				return Outcome{}, err
			}
			if res.Kind != OutcomeNone {
				out = res
			}
		}
	}
	return out, nil
}
