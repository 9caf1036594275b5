// Package analysis contains the five domain analyzers and the shared
// statistical heuristics they compose over.
//
// Each analyzer turns a cleaned, schema-normalized dataset into an
// AnalysisResult: a KPI map, a list of insights, and chart-ready series.
// Every insight carries the full finding/impact/action triple with
// concrete numbers; an analyzer that cannot say what to do about a
// finding does not emit it.
//
// The heuristics (Trend, Variance, Pareto, Ratio) never return errors.
// Missing columns or too few data points are ordinary outcomes of real
// spreadsheets, so each heuristic reports them through a Status field
// and the caller simply skips the insight.
package analysis
