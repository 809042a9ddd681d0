// Package store provides SQLite-backed persistence for state trees.
//
// The normalizer itself never does I/O; this package is host-side
// tooling used by the CLI and tests. It keeps two tables:
//   - snapshots: named state trees, keyed by (name, State.Hash)
//   - actions: a per-name log of applied actions with the state hash
//     reached after each one
//
// # Patterns
//
// Idempotent writes: SaveSnapshot is a no-op for content a name already
// holds (ON CONFLICT(name, hash) DO NOTHING).
//
// Logical time: snapshots and log entries are ordered by a per-name seq
// INTEGER, never by timestamps, so Replay is deterministic.
//
// Content addressing: hashes come from state.State.Hash, which uses
// canonical JSON and SHA-256 with domain separation. Insertion order does
// not affect the hash, but the stored JSON keeps it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
