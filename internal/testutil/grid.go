// Package testutil holds test doubles shared across packages.
package testutil

import (
	"context"
	"sync"

	"github.com/roach88/reedboard/internal/board"
)

// Grid is an in-memory grid a test moves pieces on by hand. Safe for concurrent use, so a
// test goroutine can move pieces while an engine's Run loop reads.
type Grid struct {
	mu    sync.Mutex
	snap  board.Snapshot
	err   error
	reads int
}

// NewGrid returns a grid showing snap.
func NewGrid(snap board.Snapshot) *Grid {
	return &Grid{snap: snap}
}

// Read implements engine.GridSource.
func (g *Grid) Read(ctx context.Context) (board.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return board.Snapshot{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reads++
	if g.err != nil {
		return board.Snapshot{}, g.err
	}
	return g.snap, nil
}

// Set replaces the whole board.
func (g *Grid) Set(snap board.Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = snap
}

// Lift empties the named squares.
func (g *Grid) Lift(squares ...string) {
	g.update(false, squares)
}

// Place occupies the named squares.
func (g *Grid) Place(squares ...string) {
	g.update(true, squares)
}

// Move lifts from and places to in one step, as a fast hand between two reads would.
func (g *Grid) Move(from, to string) {
	g.Lift(from)
	g.Place(to)
}

// Fail makes every read fail with err until cleared with Fail(nil).
func (g *Grid) Fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Snapshot returns what the grid currently shows.
func (g *Grid) Snapshot() board.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap
}

// Reads returns how many times Read was called.
func (g *Grid) Reads() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reads
}

func (g *Grid) update(occupied bool, squares []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range squares {
		g.snap = g.snap.With(board.MustParseSquare(name), occupied)
	}
}
