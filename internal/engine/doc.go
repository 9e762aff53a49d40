// Package engine turns a stream of raw occupancy snapshots into chess moves and a sync state.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Occupancy edges, poll ticks and new-game commands are queued by their producers and
// drained one at a time by Engine.Run. Only that goroutine touches the tracker, the rules
// authority and the sync state, so a scan is always processed to completion before the next
// one starts and producers never block.
//
// Scan Pipeline:
//  1. Read a fresh snapshot from the GridSource and stamp it with the next seq.
//  2. Start-position check: runs on every read. Outside ACTIVE, or in ACTIVE when the board
//     has just come back to the start position, it resets the authority and the tracker
//     and opens a new session.
//  3. Diff against the last known snapshot (board.Diff).
//  4. Feed the transitions to the pending-move tracker (at most two pieces in hand).
//  5. Hand a resolved move to the rules authority; a rejection desyncs.
//  6. Update the indicator and publish a Status copy for readers.
//
// Sync States:
//
//	WAITING_FOR_START --start position--> ACTIVE
//	ACTIVE --violation or illegal move--> DESYNCED
//	DESYNCED --start position--> ACTIVE
//	any --new game command--> WAITING_FOR_START
//
// There is no partial recovery from DESYNCED: the physical board has to be set up again.
//
// Ordering:
// Every successful read gets a seq from Clock. Seqs order notifications, journal rows and
// logs; wall time is never used for ordering.
package engine
