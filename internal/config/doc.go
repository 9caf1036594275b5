// Package config provides application configuration management with support
// for environment variables, YAML config files, and struct-tag defaults.
//
// Precedence is environment > config file > defaults. All environment
// variables use the ERPLENS_ prefix (e.g. ERPLENS_SERVER_PORT).
//
// AnalysisConfig is the one sub-config the rest of the codebase passes
// around: every analyzer threshold lives there so that a single request
// can run with overridden thresholds without touching global state.
package config
