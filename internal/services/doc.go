// Package services coordinates pipeline runs and serves their results to the
// HTTP layer.
//
// IntelService owns the run lifecycle: it loads the configured input files,
// runs the scoring pipeline, writes the report files, archives the run when
// an archive is configured, and publishes the result. Readers always see a
// complete result; a run in progress never replaces the published result
// until it has finished.
//
// Only one run executes at a time. A second Run call while one is active
// returns ErrRunInProgress immediately instead of queueing.
//
// Dependencies are injected as small interfaces so handlers and tests can
// substitute them:
//
//	svc := services.NewIntelService(cfg, ingest.NewLoader(logger), exp, store, metrics, logger)
//	info, err := svc.Run(ctx, services.RunOptions{Trigger: services.TriggerManual})
package services
