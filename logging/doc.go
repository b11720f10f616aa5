// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn,
// Error) that agents, flows, tools and the HTTP layer use. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - Setup for one-time process-wide configuration (dated log file plus console)
//
// Usage:
//
//	logger, err := logging.Setup(func(o *logging.Options) { o.Dir = "logs" })
//	tools := logging.Named("Tools")
package logging
