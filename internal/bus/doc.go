// Package bus implements the synchronous, kind-keyed dispatcher behind
// store subscriptions.
//
// # Kinds
//
// KindInit, KindUpdate and KindDumpUpdate are payload kinds. KindAll is a
// subscription-only meta-kind: its handlers receive every dispatch of the
// other kinds, after the kind-specific handlers, with the real kind carried
// in the payload. KindAll is never dispatched itself.
//
// # Ordering
//
// For one dispatch, handlers run in subscription order, kind-specific
// handlers first and KindAll handlers last. Dispatch runs to completion
// inside the caller; there is no queueing, batching or background work.
//
// # Lifecycle
//
// Subscribe returns a *Subscription. Remove is idempotent and takes effect
// immediately: a handler that has been removed is skipped even by a
// dispatch that was already walking the subscriber list.
package bus
