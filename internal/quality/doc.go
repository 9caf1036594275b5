// Package quality validates and cleans record sets before analysis.
//
// The validator reports every issue it finds with graduated severity and
// never hides a problem; only CRITICAL issues (missing required columns,
// mostly-empty columns) make data unusable. The cleaner applies audited
// transformations on a private copy and keeps a timestamped change log,
// so a second pass over already-clean data logs nothing.
package quality
