// Package pkg provides shared utilities for the ft60x streaming driver.
//
// This package contains functionality used by the engine, the transports
// and the tools:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors that transports use to report transfer outcomes
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentEngine, "engine started", "depth", 8)
//
// # Errors
//
// Transports report outcomes with sentinel values, and the engine classifies
// them with [errors.Is]:
//
//	if errors.Is(err, pkg.ErrNoDevice) {
//	    // device is gone, stop streaming
//	}
package pkg
