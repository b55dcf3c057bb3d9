// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints. The acting member is named by
// the `X-Member-Email` header; administrators are resolved from configuration.
//   - POST /reservations/validate: checks a proposal without storing it. Body is
//     the `reservationRequest` payload plus an optional "editing_id". Rejections
//     answer 422 with {"error_code","message","errors"} where error_code is the
//     validation kind.
//   - POST /reservations: validates and stores one pending reservation per
//     occurrence. Response: {"reservations":[...]}.
//   - GET /reservations/{id}, PUT /reservations/{id}: read or edit one
//     reservation. Edits never expand a recurrence.
//   - POST /reservations/{id}/actions: applies {"action"} (approve, notapproved,
//     onhold, cancel, delete, undelete, expire, staff, unstaff). Disallowed
//     transitions answer 409, missing capabilities 403.
//   - POST /reservations/bulk-check: dry-runs {"action","ids"} and reports
//     per reservation whether it would succeed.
//   - POST /check_wifi: resolves the "event" form field to the portal wire
//     format {"valid", "event_start_time", ...}.
//   - POST /api/v1/status_change: form fields "email" and "status"
//     (suspended|active). Requires an `X-App-Key` matching the configured
//     argon2id hash.
//   - GET /metrics: Prometheus exposition.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
