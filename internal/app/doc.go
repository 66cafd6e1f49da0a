// Package app provides the orchestration layer for nudge.
//
// # Overview
//
// This package wires together configuration, logging, the settings client,
// the capability gate, metrics and the syncer coordinator, then hands the
// coordinator to the UI. It is the composition root: every dependency is
// built here and nowhere else.
//
// # Architecture
//
// Run follows a simple initialization pattern:
//
//  1. Load ~/.config/nudge/config.toml and apply command-line overrides
//  2. Open the log file (the TUI owns the terminal)
//  3. Initialize the HTTP client and verify the settings API is reachable
//  4. Build the capability Authorizer over the grant ledger and the UI prompter
//  5. Start the coordinator with the initial load, tagging saves with attempt ids
//  6. Start the TUI and block until the user exits or the context cancels
//  7. Tear down: coordinator, metrics listener, prompter, log file
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()          Read nudge config
//	       ├─────> logging.New()          File logger
//	       ├─────> remote.NewClient()     Settings API client
//	       ├─────> ensureAvailable()      Pre-flight ping
//	       ├─────> capability.NewAuthorizer()
//	       ├─────> metrics.New()          Coordinator observer
//	       ├─────> syncer.New()           Initial load + event loop
//	       └─────> ui.Run()               Start TUI (blocks)
//
// Serve is the counterpart for "nudge serve": it runs server.Server over a
// FileStore, logging to stderr.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid configuration
//   - Settings API unreachable at startup (3 second timeout)
//   - Initial load failure
//
// Everything after startup is surfaced through the coordinator's view
// instead: failed saves show a banner and revert, denials show a notice.
// Teardown errors are combined with multierr so none is lost.
package app
