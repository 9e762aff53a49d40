package board

// Color is a side. The zero value means "no piece".
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

// Opposite returns the other side; NoColor stays NoColor.
func (c Color) Opposite() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// MarshalText lets colors travel as words in JSON.
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// PieceKind is a piece type as reported by the rules authority.
type PieceKind uint8

const (
	NoKind PieceKind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

func (k PieceKind) String() string {
	switch k {
	case King:
		return "king"
	case Queen:
		return "queen"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Knight:
		return "knight"
	case Pawn:
		return "pawn"
	default:
		return "none"
	}
}

// MarshalText lets piece kinds travel as words in JSON.
func (k PieceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Piece is what the rules authority believes stands on a square.
type Piece struct {
	Kind  PieceKind `json:"kind"`
	Color Color     `json:"color"`
}

// Empty reports whether p is the zero piece.
func (p Piece) Empty() bool { return p.Kind == NoKind || p.Color == NoColor }

// String renders "white pawn", or "empty".
func (p Piece) String() string {
	if p.Empty() {
		return "empty"
	}
	return p.Color.String() + " " + p.Kind.String()
}

// Move is a fully resolved lift/place sequence: where the moving piece came from, where it
// landed, and whether it landed on a square vacated by an opposing piece.
type Move struct {
	From    Square `json:"from"`
	To      Square `json:"to"`
	Capture bool   `json:"capture"`
}

// String renders "e2e4" or "e4xd5".
func (m Move) String() string {
	if m.Capture {
		return m.From.String() + "x" + m.To.String()
	}
	return m.From.String() + m.To.String()
}

// UCI renders the move in long algebraic form without the capture marker.
func (m Move) UCI() string { return m.From.String() + m.To.String() }
