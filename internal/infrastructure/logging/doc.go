// Package logging provides structured logging for hkbridge.
//
// This package wraps log/slog with:
//   - Level-based filtering (debug, info, warn, error)
//   - JSON or text output formats
//   - Default fields (service name, version)
//
// All loggers are safe for concurrent use.
package logging
