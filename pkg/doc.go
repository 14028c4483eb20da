// Package pkg provides shared utilities for the softdac audio pipeline.
//
// This package contains functionality used by the device primitives, the
// audio class driver and the HAL backends:
//
//   - Structured logging via Go's standard [log/slog] package, with an
//     optional zap-backed handler
//   - Sentinel errors for streaming, request and output-device failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component tag:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentStream, "streaming started", "rate", 48000)
//
// Programs that prefer zap install it as the default handler:
//
//	logger, sync := pkg.NewZapLogger(slog.LevelInfo, true)
//	defer sync()
//	pkg.SetLogger(logger)
//
// # Errors
//
// Errors are sentinel values, wrapped with context where it helps:
//
//	if errors.Is(err, pkg.ErrOverrun) {
//	    // payload dropped, ingestion continues
//	}
package pkg
