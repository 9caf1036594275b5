// Package dataset provides the in-memory tabular model the analysis
// pipeline operates on, plus loaders that read CSV and XLSX files into
// it. Cells are loosely typed on ingest; coercion happens at access time
// so dirty spreadsheet data does not fail the load.
package dataset
