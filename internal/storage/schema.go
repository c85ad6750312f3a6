package storage

// schema is applied by Migrate. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS intel_runs (
		run_id         TEXT PRIMARY KEY,
		as_of          DATE NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		establishments INTEGER NOT NULL,
		opportunities  INTEGER NOT NULL,
		market         JSONB NOT NULL,
		cohorts        JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS intel_runs_created_at_idx ON intel_runs (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS intel_bundles (
		run_id           TEXT NOT NULL REFERENCES intel_runs (run_id) ON DELETE CASCADE,
		establishment_id TEXT NOT NULL,
		cohort           TEXT NOT NULL,
		health           DOUBLE PRECISION NOT NULL,
		status           TEXT NOT NULL,
		trend            TEXT NOT NULL,
		bundle           JSONB NOT NULL,
		PRIMARY KEY (run_id, establishment_id)
	)`,
	`CREATE INDEX IF NOT EXISTS intel_bundles_status_idx ON intel_bundles (run_id, status)`,
}
