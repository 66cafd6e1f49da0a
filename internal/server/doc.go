// Package server implements a local settings API for development and demos.
//
// # Overview
//
// "nudge serve" runs this server so the editor has something real to talk
// to. It behaves like the production endpoint in the ways that matter to the
// syncer coordinator:
//
//   - PUT responds with what was stored, not what was sent. Times are rounded
//     to the minute step and the configured time zone is stamped.
//   - Malformed bodies and out-of-range values get 400 with a JSON error.
//   - Optional latency delays every settings request, so overlapping saves
//     and out-of-order completion can be observed.
//   - FailEvery makes every Nth PUT fail with 503 to exercise revert and
//     retry in the editor.
//
// # Routes
//
//	GET  /api/settings/reminders
//	PUT  /api/settings/reminders
//	GET  /healthz
//	GET  /metrics
//
// Every response carries X-Request-ID, adopted from the request when present
// so server logs line up with the editor's persist attempt ids.
//
// # Storage
//
// FileStore keeps one TOML document. Writes go to a temp file that is synced
// and renamed over the original, so a crash never leaves a torn file.
package server
