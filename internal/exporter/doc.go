// Package exporter writes batch results as report files.
//
// This package contains these components:
//
// CSVWriter: Core CSV writing functionality with support for headers, streaming,
// and UTF-8 BOM for Excel compatibility.
//
// Tables: The flat row layouts shared by CSV and XLSX output (results, cohorts,
// momentum points and pillar gaps).
//
// Exporter: Writes one run in every configured format (csv, json, xlsx,
// summary) into the output directory.
//
// Example usage:
//
//	exp := exporter.New(cfg.Output, logger, metrics)
//	files, err := exp.Export(ctx, result)
package exporter
