package board

import "fmt"

// Kind is the direction of a single square's occupancy change.
type Kind uint8

const (
	// Lift is occupied -> empty.
	Lift Kind = iota + 1
	// Place is empty -> occupied.
	Place
)

func (k Kind) String() string {
	switch k {
	case Lift:
		return "lift"
	case Place:
		return "place"
	default:
		return "none"
	}
}

// Transition is one square that changed between two consecutive snapshots.
type Transition struct {
	Square Square
	Kind   Kind
}

// String renders "-e2" for a lift and "+e4" for a placement.
func (t Transition) String() string {
	if t.Kind == Lift {
		return "-" + t.Square.String()
	}
	return "+" + t.Square.String()
}

// MarshalText encodes the transition as its String form.
func (t Transition) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes the String form.
func (t *Transition) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) < 1 {
		return fmt.Errorf("invalid transition %q", s)
	}
	var kind Kind
	switch s[0] {
	case '-':
		kind = Lift
	case '+':
		kind = Place
	default:
		return fmt.Errorf("invalid transition %q: want -square or +square", s)
	}
	sq, err := ParseSquare(s[1:])
	if err != nil {
		return fmt.Errorf("invalid transition %q: %w", s, err)
	}
	*t = Transition{Square: sq, Kind: kind}
	return nil
}

// Diff returns every square whose occupancy differs between prev and cur, in square index
// order. It returns nil when nothing changed.
func Diff(prev, cur Snapshot) []Transition {
	var out []Transition
	for rank := 0; rank < 8; rank++ {
		changed := prev[rank] ^ cur[rank]
		if changed == 0 {
			continue
		}
		for file := 0; file < 8; file++ {
			bit := uint8(1) << uint(file)
			if changed&bit == 0 {
				continue
			}
			kind := Place
			if cur[rank]&bit == 0 {
				kind = Lift
			}
			out = append(out, Transition{Square: NewSquare(file, rank), Kind: kind})
		}
	}
	return out
}
