// Package ingest loads market snapshots from CSV or XLSX files into raw
// establishment records.
//
// Column headers are matched case-insensitively against a list of aliases,
// so exports from different scrapers load without a mapping step. Values are
// kept as text: all coercion happens in the intel Normalizer.
//
// When a review-level file is given, Enrich derives the response rate,
// average review rating, recency shares, last review date and monthly review
// counts for each establishment. Values already present in the
// establishments file are never overwritten.
//
// Example usage:
//
//	loader := ingest.NewLoader(logger)
//	records, err := loader.Load(ctx, cfg.Input, asOf)
package ingest
