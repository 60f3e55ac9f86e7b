// Package bridge implements the message channel between the hosted page and
// the shell.
//
// Page → host: plain strings on the "duckDuckDo" channel, formatted as
// "<command> <arg0> <arg1> ...". The host splits on whitespace, drops empty
// tokens and matches the first token case-sensitively against the known
// commands. Unknown commands are ignored so newer page scripts keep working
// against older shells.
//
// Host → page: fire-and-forget script evaluation. There are no replies or
// correlation ids; every script in this package is safe to run repeatedly.
package bridge
