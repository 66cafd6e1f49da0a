// Package capability decides whether the user has granted a capability such
// as sending notifications.
//
// Answers are remembered in a small TOML ledger (grants.toml) so the user is
// asked at most once per capability:
//
//	[capabilities]
//	notifications = "granted"
//
// Authorizer implements syncer.Gate on top of the ledger. A missing or
// unreadable ledger starts empty; a failed write is logged and the answer
// still applies for the current run.
//
// A remembered denial is not permanent: "nudge grants reset [capability]"
// forgets it and the next enable asks again.
package capability
