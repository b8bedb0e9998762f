// Package http provides HTTP handlers and middleware for the slot booking API.
//
// The router exposes the following endpoints:
//   - GET /api/slots: lists slots, optionally filtered with `from`, `to`, and
//     `booked_only` query parameters. Available to everyone.
//   - POST /api/bookings: books an interval. Body: {"start","end","name",
//     "location","weekly"}. Responds with the booked slot, the action taken,
//     and for weekly bookings the booked occurrences plus any skipped starts.
//   - GET /api/export: serves every booked slot as an iCalendar feed.
//   - POST /sessions: issues an administrator session token. Body:
//     {"email","password"}. The token is also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted
//     from the Authorization header or session cookie.
//   - GET /api/admin/slots: administrator listing of the full slot set,
//     accepting the same query parameters as GET /api/slots.
//   - PUT /api/admin/slots: administrator bulk reconciliation exchanging the
//     `slotDescriptorDTO` payload defined in slot_handler.go.
//   - DELETE /api/admin/slots/{id}: administrator single slot deletion.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
