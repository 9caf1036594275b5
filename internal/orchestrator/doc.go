// Package orchestrator coordinates multi-file analysis runs. It gates
// each uploaded dataset on schema confidence and required-field
// coverage, fans the surviving domains out to their analyzers in
// parallel, and folds the per-domain results through the insight,
// recommendation and risk engines into a single unified report.
//
// A domain that fails its gate, returns an error, or panics is simply
// not enabled; it never aborts the run and never leaks partial output
// into the report maps.
package orchestrator
