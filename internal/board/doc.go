// Package board holds the value types shared by every stage of the sensing pipeline.
//
// A Snapshot is one full read of the reed-switch grid: which squares hold a piece, with no
// identity information. Snapshots are plain arrays, so copying one copies the whole grid and
// nothing downstream can mutate a snapshot another stage still holds.
//
// Diff compares two snapshots and returns the squares that changed, in square index order
// (a1, b1, ... h1, a2, ... h8). That order is the only ordering the rest of the pipeline
// relies on, so replaying the same snapshots always yields the same transitions.
package board
