// Package types provides shared value types for the TweetDuck shell.
//
// Core Types:
//   - UIVersion: hosted-page interface generation (legacy, main, beta)
//   - AppearanceMode: shell-side theme preference (auto, light, dark)
//
// Both enums parse from a fixed whitelist of lowercase names. Anything
// outside the whitelist is rejected rather than coerced, since the raw
// values originate from page cookies and preference files.
package types
