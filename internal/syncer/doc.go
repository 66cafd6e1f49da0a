// Package syncer keeps a small, frequently edited settings value in step with
// a remote store that may be slow, offline, or reject changes.
//
// # Overview
//
// A Coordinator is created per editor. It loads the authoritative value once,
// then lets the UI mutate a draft synchronously while saves happen in the
// background. The UI always sees its own edits immediately; the remote store
// only ever sees values the user settled on and, for gated toggles, values the
// Gate authorized.
//
// # Core Types
//
//   - Snapshot: last value the remote store accepted. Replaced only by the
//     initial load or a successful save for the current revision.
//   - Draft: the value bound to the form controls.
//   - Revision: minted for every edit that must eventually be saved. Every
//     save attempt carries the revision that spawned it.
//   - pendingSave: the single armed debounce timer.
//
// # Control Flow
//
//	edit ─→ draft updated ─→ revision++ ─→ timer armed (quiet period or 0)
//	                                            │
//	                                 timer fires on the loop
//	                                            │
//	                 gate outstanding? ── yes ─→ deferred until it resolves
//	                                            │ no
//	                                      save(draft, rev)
//	                                            │
//	                        result posted back to the loop (reconcile)
//	                                            │
//	    rev != current ─→ dropped   │ ok ─→ snapshot = draft = server value
//	                                │ err ─→ draft = snapshot, error surfaced
//
// # Scheduling
//
// Debounced edits wait QuietPeriod (350ms by default) and re-arm on every
// later edit, so a burst produces one save carrying the last value. Immediate
// edits save on the next tick. Arming a timer always stops the previous one.
//
// # Permission Gate
//
// Enabling a toggle with a Capability updates the draft at once and asks the
// Gate on a separate goroutine. While any check is outstanding no save is
// started. Granted keeps the toggle on; Denied or Failed (an error or panic
// from the gate) reverts only that toggle and raises a state.Notice. Either
// way an immediate save follows so the draft, snapshot and remote converge.
//
// A verdict is applied only if it belongs to the toggle's latest check.
// Turning the toggle off, or off and on again, makes an older verdict stale
// and it is dropped, even a denial. Edits to other fields do not make a
// verdict stale.
//
// # Reconciliation
//
// Several saves may be in flight at once. Results are applied in highest
// revision wins order, never completion order: a result whose revision is no
// longer current is dropped whether it succeeded or failed. A successful
// result for the current revision replaces both snapshot and draft with what
// the server returned, since the server may normalize values. A failure
// reverts the draft to the snapshot and sets View.LastError to a
// *PersistError. context.Canceled is never surfaced. There is no automatic
// retry; Retry re-applies the failed value on request. Any later user edit
// clears the failure, so Retry never overwrites newer edits.
//
// # Concurrency Model
//
// All state lives on one goroutine. Public methods post a closure to it and
// wait; timers, saves and gate checks post closures without waiting. Nothing
// on the loop blocks, so no locks guard the settings value itself.
//
// # Teardown
//
// Close stops the armed timer, cancels in-flight saves and gate checks and
// stops the loop. Results that arrive afterwards are dropped, and no save is
// started once Close has returned.
package syncer
