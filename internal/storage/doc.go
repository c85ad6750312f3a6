// Package storage archives pipeline runs in Postgres.
//
// Each run is one row in intel_runs with the market summary and cohort
// summaries as JSONB; each result bundle is one row in intel_bundles keyed
// by (run_id, establishment_id). The archive is optional: the engine and the
// HTTP API work without it, and a configured archive lets a restarted server
// serve the last result before running again.
package storage
