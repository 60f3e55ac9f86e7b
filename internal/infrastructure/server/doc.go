/*
Package server exposes a local diagnostics endpoint for a running shell.

Routes:

	GET  /healthz             liveness
	GET  /metrics             Prometheus metrics
	GET  /state               controller snapshot
	GET  /classify?url=&frame routing decision for a URL
	POST /ui-version/toggle   apply the UI version toggle
	GET  /events              websocket stream of shell events

The server binds to loopback by default and is off unless enabled.
*/
package server
