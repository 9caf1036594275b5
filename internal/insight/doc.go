// Package insight turns per-domain analysis results into the report
// building blocks: a deduplicated, severity-ordered insight list, an
// executive summary, prioritized recommendations, and forward-looking
// risks.
//
// The engines are deterministic: identical inputs produce identical
// output ordering, which the report renderer and the tests rely on.
package insight
