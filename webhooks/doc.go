// Package webhooks delivers signed events to subscriber endpoints.
//
// A failed POST is an outcome to record, not an error to propagate: the
// sender always returns a DeliveryResult and the dispatcher persists it to
// the delivery ledger. Receivers verify deliveries by recomputing the
// HMAC-SHA256 of "v0:<timestamp>:<payload>" with their subscription secret
// and comparing it to the X-Status-Signature header.
package webhooks
