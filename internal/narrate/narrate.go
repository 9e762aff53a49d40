// Package narrate phrases engine events as short English sentences for voice and chat
// front ends.
package narrate

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/reedboard/internal/engine"
)

// Move describes an accepted move: "White pawn e2 to e4." or
// "White pawn on e4 takes black pawn on d5."
func Move(ev engine.MoveEvent) string {
	var b strings.Builder
	m := ev.Move
	if m.Capture {
		fmt.Fprintf(&b, "%s on %s takes %s on %s.", ev.Mover, m.From, ev.Captured, m.To)
	} else {
		fmt.Fprintf(&b, "%s %s to %s.", ev.Mover, m.From, m.To)
	}

	switch {
	case ev.GameOver:
		fmt.Fprintf(&b, " Game over, %s.", result(ev.Result))
	case strings.HasSuffix(ev.SAN, "+"):
		b.WriteString(" Check.")
	}
	return capitalise(b.String())
}

// State describes a sync state change.
func State(state engine.SyncState) string {
	switch state {
	case engine.StateActive:
		return "Board recognised. Ready to play."
	case engine.StateDesynced:
		return "I lost track of the pieces. Please set up the start position."
	default:
		return "Waiting for the start position."
	}
}

// Notification phrases a notification, or returns "" for ones not worth saying.
func Notification(n engine.Notification) string {
	switch n.Kind {
	case engine.NotifyMove:
		if n.Move == nil {
			return ""
		}
		return Move(*n.Move)
	case engine.NotifyState:
		return State(n.State)
	default:
		return ""
	}
}

func result(r string) string {
	switch r {
	case "1-0":
		return "white wins"
	case "0-1":
		return "black wins"
	case "1/2-1/2":
		return "draw"
	default:
		return "no result"
	}
}

// capitalise upper-cases the first word only. A Caser holds state, so each call gets its own.
func capitalise(s string) string {
	title := cases.Title(language.English, cases.NoLower)
	first, rest, found := strings.Cut(s, " ")
	if !found {
		return title.String(s)
	}
	return title.String(first) + " " + rest
}
