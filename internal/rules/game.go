// Package rules adapts github.com/notnil/chess into the rules authority the engine consults:
// what stands on a square, whether a from/to pair is a legal move, whose turn it is and
// whether the game is over. Promotion, castling and en-passant details are left entirely to
// the chess library once a from/to pair is known.
package rules

import (
	"github.com/notnil/chess"
	"github.com/pkg/errors"

	"github.com/roach88/reedboard/internal/board"
)

// Verdict is the authority's answer to a proposed move.
type Verdict struct {
	Accepted bool        `json:"accepted"`
	Turn     board.Color `json:"turn"`
	GameOver bool        `json:"game_over"`
	Result   string      `json:"result,omitempty"` // "1-0", "0-1", "1/2-1/2"
	Method   string      `json:"method,omitempty"` // e.g. "Checkmate"
	SAN      string      `json:"san,omitempty"`
}

// Game is a rules authority backed by an in-memory chess.Game.
// It is owned by the engine's event loop and is not safe for concurrent use.
type Game struct {
	game *chess.Game
}

// NewGame returns a game in the standard starting position.
func NewGame() *Game {
	return &Game{game: chess.NewGame()}
}

// FromFEN returns a game starting from an arbitrary position.
func FromFEN(fen string) (*Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, errors.WithMessage(err, "parse fen")
	}
	return &Game{game: chess.NewGame(opt)}, nil
}

// Reset starts a new game.
func (g *Game) Reset() {
	g.game = chess.NewGame()
}

// PieceAt reports the piece on sq in the current position.
func (g *Game) PieceAt(sq board.Square) board.Piece {
	p := g.game.Position().Board().Piece(toChess(sq))
	return fromChessPiece(p)
}

// Turn returns the side to move.
func (g *Game) Turn() board.Color {
	return fromChessColor(g.game.Position().Turn())
}

// FEN returns the current position in Forsyth-Edwards notation.
func (g *Game) FEN() string {
	return g.game.FEN()
}

// MoveCount returns the number of half-moves played.
func (g *Game) MoveCount() int {
	return len(g.game.Moves())
}

// Apply plays the legal move matching m's squares. A move that matches no legal move is
// rejected without changing the game. When a pawn reaches the last rank the queen promotion
// is chosen.
//
// The returned error is reserved for the authority itself failing; an illegal move is a
// rejected Verdict, not an error.
func (g *Game) Apply(m board.Move) (Verdict, error) {
	if g.game.Outcome() != chess.NoOutcome {
		return g.verdict(false, ""), nil
	}

	move := g.match(m)
	if move == nil {
		return g.verdict(false, ""), nil
	}

	pos := g.game.Position()
	san := chess.AlgebraicNotation{}.Encode(pos, move)
	if err := g.game.Move(move); err != nil {
		return Verdict{}, errors.WithStack(err)
	}
	return g.verdict(true, san), nil
}

func (g *Game) match(m board.Move) *chess.Move {
	from, to := toChess(m.From), toChess(m.To)
	var found *chess.Move
	for _, candidate := range g.game.ValidMoves() {
		if candidate.S1() != from || candidate.S2() != to {
			continue
		}
		if candidate.Promo() == chess.NoPieceType || candidate.Promo() == chess.Queen {
			return candidate
		}
		if found == nil {
			found = candidate
		}
	}
	return found
}

func (g *Game) verdict(accepted bool, san string) Verdict {
	v := Verdict{
		Accepted: accepted,
		Turn:     g.Turn(),
		SAN:      san,
	}
	if outcome := g.game.Outcome(); outcome != chess.NoOutcome {
		v.GameOver = true
		v.Result = outcome.String()
		v.Method = g.game.Method().String()
	}
	return v
}

func toChess(sq board.Square) chess.Square {
	return chess.Square(sq.Rank()*8 + sq.File())
}

func fromChessColor(c chess.Color) board.Color {
	switch c {
	case chess.White:
		return board.White
	case chess.Black:
		return board.Black
	default:
		return board.NoColor
	}
}

func fromChessPiece(p chess.Piece) board.Piece {
	if p == chess.NoPiece {
		return board.Piece{}
	}
	var kind board.PieceKind
	switch p.Type() {
	case chess.King:
		kind = board.King
	case chess.Queen:
		kind = board.Queen
	case chess.Rook:
		kind = board.Rook
	case chess.Bishop:
		kind = board.Bishop
	case chess.Knight:
		kind = board.Knight
	case chess.Pawn:
		kind = board.Pawn
	}
	return board.Piece{Kind: kind, Color: fromChessColor(p.Color())}
}
