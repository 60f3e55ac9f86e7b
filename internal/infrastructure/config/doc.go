// Package config provides 12-factor configuration management for the shell.
//
// Configuration is loaded from environment variables with sensible defaults.
// A .env file in the working directory, when present, is loaded first and
// never overrides variables already set in the environment.
//
// Configuration Sections:
//   - App: hosted application URLs and cookie names
//   - Browser: Chrome binary, window and profile settings
//   - Readiness: poll interval for the load-readiness detector
//   - Logging: log level, output format and optional log file
//   - Diagnostics: local inspection server
//   - Updates: release feed polling
//   - Preferences: persisted preference file
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Loading %s\n", cfg.App.EntryURL)
package config
