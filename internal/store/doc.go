// Package store provides Store, an immutable state container with
// change notification.
//
// A Store owns two snapshots: the initial one, kept for ResetState, and
// the current one. Both are frozen ir.Object trees. Mutations never touch
// a published snapshot; they build a candidate and replace the current
// snapshot wholesale.
//
// # Mutation Path
//
// SetState and ResetState follow the same sequence under one lock:
//   - Clone the current snapshot and merge the partial (or clone initial)
//   - Compare the candidate with the current snapshot (ir.Equal)
//   - If different: freeze, publish, recompute the fingerprint
//
// The lock is released before dispatch. A real change dispatches update,
// an equal candidate dispatches dumpUpdate, and all listeners run last.
//
// # Fingerprint
//
// ID is derived only from the canonical JSON of the current snapshot (see
// ir.Fingerprint), so equal states always share an ID across stores and
// processes.
package store
