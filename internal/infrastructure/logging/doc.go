// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// When Config.File is set, entries are also written as JSON to a rotating
// file (lumberjack), so a desktop run leaves a trail after the terminal is gone.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Shell starting", zap.String("entry", cfg.App.EntryURL))
//	logger.Named("bridge").Debug("ignored command", zap.String("command", name))
package logging
