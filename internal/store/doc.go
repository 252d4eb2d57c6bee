// Package store provides the reference shared query store that widgets bind to,
// and a SQLite-backed journal of every dispatch made against it.
//
// The Store implements the write/read contract widgets consume:
//   - Register / Unregister: component lifetime
//   - Watch: the dependency clause a component is gated by
//   - PushQuery / SetQueryOptions: query state
//   - SetQueryListener: host callbacks for query changes and errors
//   - Snapshot: hits, aggregations, selected value, loading flag, error
//
// Host-side reducers (SetResults, SetLoading, SetError, Select) stand in for
// the network layer so that the binding logic can be exercised end to end.
//
// # Dispatch Ordering
//
// Every dispatch is stamped with a logical clock (seq), never wall-clock time,
// and handed to the configured Recorder while the store lock is held. The
// recorded order is therefore the order in which state actually changed.
// Listener and subscriber callbacks always run after the lock is released, so
// they may dispatch again.
//
// # Journal
//
// Journal persists dispatches to SQLite:
//   - WAL mode, synchronous=NORMAL, busy_timeout=5000
//   - single connection (one writer)
//   - content-addressed dispatch ids (SHA-256 over canonical JSON)
//   - reads ordered by seq ASC, id ASC COLLATE BINARY
package store
