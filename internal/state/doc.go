// Package state provides the reactive surface a settings editor renders from.
//
// # Overview
//
// The coordinator in package syncer owns a settings object and publishes a
// View every time anything the UI cares about changes: the draft bound to the
// form controls, the last confirmed snapshot, whether a save is in flight, the
// last persist error and the most recent permission notice.
//
// # Architecture
//
// The package follows a single-writer, many-reader pattern:
//
//	Writer (coordinator loop):      Readers (UI, tests):
//	┌─────────────────────┐        ┌─────────────────────┐
//	│ edit / reconcile    │        │ store.Snapshot()    │
//	│      ↓              │        │        or           │
//	│ store.Publish(view) │───────→│ <-store.Subscribe() │
//	└─────────────────────┘ (mutex)└─────────────────────┘
//
// Store is safe to construct with its zero value.
//
// # Subscription Semantics
//
// Subscribe hands back a channel with a buffer of one. The current view is
// delivered immediately; when a subscriber falls behind, older unread views
// are replaced by the newest one. A renderer never needs intermediate states,
// only the latest.
//
// Close delivers a final view with Closed set and closes every subscription
// channel, so a `for range` loop over a subscription terminates when the
// editor is torn down.
//
// # Copying
//
// Views are copied on Publish and on read. The notice pointer is duplicated so
// callers cannot mutate what other readers see. Settings values themselves are
// expected to be comparable value types and are copied by assignment.
package state
