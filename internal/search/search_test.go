package search

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stockfish returns the path of a local stockfish or skips the test.
func stockfish(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("stockfish")
	if err != nil {
		t.Skip("stockfish not installed")
	}
	return path
}

func TestOpen_MissingBinary(t *testing.T) {
	_, err := Open("/nonexistent/stockfish", time.Second)
	assert.Error(t, err)
}

func TestBestMove_MateInOne(t *testing.T) {
	eng, err := Open(stockfish(t), 200*time.Millisecond)
	require.NoError(t, err)
	defer eng.Close()

	// Scholar's mate: Qxf7#.
	hint, err := eng.BestMove("r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4")
	require.NoError(t, err)
	assert.Equal(t, "h5f7", hint.Move)
	assert.Equal(t, "Qxf7#", hint.SAN)
	assert.Equal(t, 1, hint.Mate)
}

func TestBestMove_NoLegalMove(t *testing.T) {
	eng, err := Open(stockfish(t), 100*time.Millisecond)
	require.NoError(t, err)
	defer eng.Close()

	// Fool's mate, white is checkmated.
	_, err = eng.BestMove("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	assert.ErrorIs(t, err, ErrNoMove)
}

func TestBestMove_BadFEN(t *testing.T) {
	eng := &Engine{moveTime: time.Millisecond}
	_, err := eng.BestMove("not a fen")
	assert.Error(t, err)
}
