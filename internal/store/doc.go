// Package store is the SQLite scan journal.
//
// A journal holds runs, and for each run the raw occupancy snapshots the grid produced, in
// scan order. It is a sensor diagnostic capture: it records what the switches reported and
// nothing the engine inferred from it, so a run can be replayed through a fresh engine or
// inspected scan by scan after the fact.
//
// # Ordering
//
// Rows are keyed by (run_id, seq) where seq is the engine's scan counter. All reads use
// ORDER BY seq ASC; wall time is never stored. Runs list in insertion order.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING, so re-recording a scan is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
