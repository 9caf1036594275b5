// Package services implements the business logic layer between the HTTP
// handlers and the analysis core.
//
// Services follow these principles:
//
//	1. Context propagation for cancellation
//	2. Dependency injection for loose coupling
//	3. Domain-focused methods that encapsulate pipeline ordering
//
// AnalysisService owns the single-file pipeline (detect, validate,
// clean, normalize, analyze, engines) and delegates multi-file runs to
// the orchestrator. Handlers never touch the pipeline stages directly;
// they translate service errors into API responses.
package services
