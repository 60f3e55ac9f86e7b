// Command tweetduck runs the TweetDuck shell.
//
// The shell hosts the TweetDeck web application in a Chrome tab it controls.
// Every navigation is routed through the URL classifier, each run starts
// with a fresh non-persistent profile, and a small bridge lets the page
// report readiness and switch interface versions.
//
// Usage:
//
//	# Run the shell (default command)
//	tweetduck
//
//	# Show how a URL would be routed
//	tweetduck classify https://twitter.com/login
//	tweetduck classify --frame https://www.youtube.com/embed/x
//
//	# Drive the controller against the in-process page simulator
//	tweetduck simulate --signed-in --message "changeUIVersion beta"
//
// Configuration:
//   - Environment variables, optionally from a .env file
//   - CHROME_PATH, CHROME_HEADLESS, LOG_LEVEL, DIAG_ENABLED, UPDATES_ENABLED, ...
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
