// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides BufferedSlogHandler, which captures
// slog records so tests can assert on what a component logged.
package shared
