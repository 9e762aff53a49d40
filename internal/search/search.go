// Package search asks a UCI chess engine (stockfish or similar) for the best move in a
// position. It is an optional helper for front ends; the move pipeline never waits on it.
package search

import (
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"github.com/pkg/errors"
)

// Hint is the engine's suggestion for the side to move.
type Hint struct {
	Move string `json:"move"` // long algebraic, e.g. "e2e4"
	SAN  string `json:"san"`
	// ScoreCP is the evaluation in centipawns from the mover's side; Mate is moves to mate
	// (negative when being mated) and zero when no mate was found.
	ScoreCP int `json:"score_cp"`
	Mate    int `json:"mate,omitempty"`
	Depth   int `json:"depth"`
}

// ErrNoMove is returned for positions without a legal move.
var ErrNoMove = errors.New("no legal move in position")

// Engine is a running UCI engine process. Safe for concurrent use; searches are serialised.
type Engine struct {
	mu       sync.Mutex
	eng      *uci.Engine
	moveTime time.Duration
}

// Open starts the engine binary at path and performs the UCI handshake.
func Open(path string, moveTime time.Duration) (*Engine, error) {
	eng, err := uci.New(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "start uci engine %s", path)
	}
	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		eng.Close()
		return nil, errors.WithMessage(err, "uci handshake")
	}
	if moveTime <= 0 {
		moveTime = 500 * time.Millisecond
	}
	return &Engine{eng: eng, moveTime: moveTime}, nil
}

// BestMove searches the position given as FEN.
func (e *Engine) BestMove(fen string) (Hint, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return Hint{}, errors.WithMessage(err, "parse fen")
	}
	pos := chess.NewGame(opt).Position()
	if len(pos.ValidMoves()) == 0 {
		return Hint{}, ErrNoMove
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.eng.Run(uci.CmdPosition{Position: pos}, uci.CmdGo{MoveTime: e.moveTime}); err != nil {
		return Hint{}, errors.WithStack(err)
	}
	res := e.eng.SearchResults()
	if res.BestMove == nil {
		return Hint{}, ErrNoMove
	}

	return Hint{
		Move:    res.BestMove.String(),
		SAN:     chess.AlgebraicNotation{}.Encode(pos, res.BestMove),
		ScoreCP: res.Info.Score.CP,
		Mate:    res.Info.Score.Mate,
		Depth:   res.Info.Depth,
	}, nil
}

// Close stops the engine process.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eng.Close()
}
