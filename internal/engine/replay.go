package engine

import (
	"context"
	"errors"

	"github.com/roach88/reedboard/internal/board"
)

// Replay runs recorded snapshots through a fresh engine, one Scan per snapshot, and returns
// what each scan amounted to.
//
// The pipeline has no wall-clock or random input apart from session ids, so replaying the
// same snapshots against a freshly reset authority with a FixedGenerator yields identical
// results every time. Desyncs are part of the result, not a failure; only a fault (the
// authority failing) aborts the replay.
func Replay(ctx context.Context, snaps []board.Snapshot, authority Authority, opts ...Option) ([]ScanResult, error) {
	src := &sliceSource{snaps: snaps}
	e := New(src, authority, opts...)

	results := make([]ScanResult, 0, len(snaps))
	for range snaps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.Scan(ctx)
		if err != nil && !IsDesync(err) {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// sliceSource serves recorded snapshots in order.
type sliceSource struct {
	snaps []board.Snapshot
	next  int
}

var errExhausted = errors.New("recorded snapshots exhausted")

func (s *sliceSource) Read(context.Context) (board.Snapshot, error) {
	if s.next >= len(s.snaps) {
		return board.Snapshot{}, errExhausted
	}
	snap := s.snaps[s.next]
	s.next++
	return snap, nil
}
