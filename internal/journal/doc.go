// Package journal provides a SQLite-backed dispatch journal for stores.
//
// The journal is a diagnostic trace: it records what a store dispatched,
// and is never read back into a store.
//   - Sessions: one row per recorded store lifetime
//   - Dispatches: one row per init, update or dumpUpdate event
//
// # Ordering
//
// All ordering uses seq INTEGER (logical clock), never timestamps.
// Queries order by seq ASC, with COLLATE BINARY on text keys, so identical
// runs list identically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// States are stored as RFC 8785 canonical JSON (see internal/ir), so the
// stored text of a state hashes to its recorded fingerprint.
package journal
