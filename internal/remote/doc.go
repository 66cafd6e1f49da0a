// Package remote provides an HTTP client for the reminder settings API.
//
// # Overview
//
// The client implements the load and save operations the syncer coordinator
// is parameterized with. It speaks JSON over two requests:
//
//   - GET /api/settings/reminders: current stored settings
//   - PUT /api/settings/reminders: replace settings, respond with what was stored
//
// The PUT response is authoritative. The server may round times to its minute
// step and always stamps the time zone, so callers must adopt the returned
// value rather than the one they sent.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: nudge/0.1
//   - Carry X-Request-ID when the context has one (see WithRequestID)
//   - Have a 5-second timeout by default (WithTimeout overrides)
//
// # Error Handling
//
//   - Client initialization errors: invalid api_bind
//   - Network errors: wrapped as "execute request: ..."; context.Canceled is
//     preserved so callers can tell teardown from failure
//   - HTTP errors: *StatusError with the server's message; 404 matches ErrNotFound
//   - Payload errors: malformed JSON or out-of-range fields
//
// # Design Rationale
//
// No retries and no caching. Retry policy belongs to the coordinator, which
// deliberately has none.
package remote
