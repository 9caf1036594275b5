// Package shared holds cross-cutting helpers that belong to no single
// layer. Currently only the testutil subpackage, a buffered slog handler
// for asserting on log output in tests.
package shared
