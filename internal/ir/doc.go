// Package ir provides the value tree that every statebox snapshot is built from.
//
// A Value is one of Null, String, Int, Bool, *Array or *Object. Containers
// carry an explicit frozen flag: once Freeze has been applied, every write
// through Set, Append or Delete returns a *MutationError instead of
// succeeding. This is how a store can hand out its live snapshot without
// copying it.
//
// ir imports nothing internal. All other internal packages build on it.
//
// Key design constraints:
//   - NO float types anywhere (CP-5) - use int64 for numbers
//   - Null is a value, not an absent field
//   - Canonical JSON (RFC 8785) is the only input to Fingerprint
//   - Clone never returns a frozen container
package ir
