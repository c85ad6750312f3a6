// Package http implements the JSON API over the latest pipeline result.
//
// Handlers are thin: they parse and validate the request, call the intel
// service, and render either a success envelope or an RFC 7807 problem.
//
//	{"status": "success", "data": ..., "count": n}
//
// Service errors are mapped to API errors in one place (mapServiceError) so
// every handler reports missing results, unknown IDs and concurrent runs the
// same way.
//
// # Routes
//
//	GET  /api/v1/establishments          filters: district, min_health, trend, status, limit
//	GET  /api/v1/establishments/{id}
//	GET  /api/v1/cohorts
//	GET  /api/v1/cohorts/{district}
//	GET  /api/v1/opportunities
//	GET  /api/v1/market
//	POST /api/v1/runs                    body: {"as_of", "cohort_key", "weights"}
//	GET  /api/v1/runs                    archived runs, newest first
//	GET  /api/v1/runs/latest
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//	GET  /metrics
package http
