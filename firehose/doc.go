// Package firehose tails the Bluesky jetstream and applies record mutations
// to the local materialized view.
//
// The stream is at-least-once and possibly reordered, so ingestion is
// idempotent: upserts fully replace by URI and deletes of absent rows
// succeed. The consumer owns an explicit cursor instead of assuming order;
// out-of-order positions are counted, never rewound.
package firehose
