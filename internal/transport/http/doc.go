// Package http exposes the analysis pipeline over a chi router.
//
// Endpoints:
//
//	POST /api/analyze        single record set (JSON or multipart file)
//	POST /api/analyze/multi  one file per domain (multipart)
//	GET  /api/health         liveness and version info
//	GET  /metrics            prometheus scrape endpoint
//
// Handlers translate service errors into RFC 7807 problem documents;
// they never leak internal error strings for unexpected failures.
package http
