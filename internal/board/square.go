package board

import "fmt"

// Square is a board coordinate packed as rank*8 + file: a1 = 0, h1 = 7, a8 = 56, h8 = 63.
// The packing gives squares a total order that matches the sensor scan order.
type Square uint8

// NoSquare is returned by parsers on failure.
const NoSquare Square = 64

// NewSquare builds a square from zero-based file (a = 0) and rank (1st rank = 0).
func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

// File returns the zero-based file (0 = a).
func (sq Square) File() int { return int(sq) % 8 }

// Rank returns the zero-based rank (0 = 1st rank).
func (sq Square) Rank() int { return int(sq) / 8 }

// Valid reports whether sq lies on the board.
func (sq Square) Valid() bool { return sq < NoSquare }

// String returns the algebraic name, e.g. "e2".
func (sq Square) String() string {
	if !sq.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// MarshalText encodes the square by name so JSON and YAML show "e2" rather than 12.
func (sq Square) MarshalText() ([]byte, error) {
	if !sq.Valid() {
		return nil, fmt.Errorf("invalid square %d", uint8(sq))
	}
	return []byte(sq.String()), nil
}

// UnmarshalText parses an algebraic square name.
func (sq *Square) UnmarshalText(text []byte) error {
	parsed, err := ParseSquare(string(text))
	if err != nil {
		return err
	}
	*sq = parsed
	return nil
}

// ParseSquare parses an algebraic square name such as "e2". Upper-case files are accepted.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	f := s[0]
	if f >= 'A' && f <= 'H' {
		f += 'a' - 'A'
	}
	r := s[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return NewSquare(int(f-'a'), int(r-'1')), nil
}

// MustParseSquare is ParseSquare for literals; it panics on bad input.
func MustParseSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}
