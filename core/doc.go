// Package core contains the canonical statuswire domain contracts, entities,
// and orchestration logic: the materialized status view, the webhook
// subscription registry, and the signed dispatch pipeline. Lower-level
// adapters must depend on this package; core must not depend on storage or
// transport adapters.
package core
