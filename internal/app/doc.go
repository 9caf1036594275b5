// Package app wires configuration, services and the HTTP server into a
// runnable application and manages its lifecycle.
//
// The initialization sequence:
//
//	1. Load configuration from environment and optional YAML file
//	2. Initialize structured logging
//	3. Create the metrics registry and the analysis service
//	4. Build the router and HTTP server
//
// Run serves until SIGINT/SIGTERM and then drains in-flight requests
// within the configured shutdown timeout. Initialization errors are
// returned to the caller; the package never calls os.Exit directly.
package app
