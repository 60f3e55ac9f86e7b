/*
Package chrome implements the browser surface on Chrome through the DevTools
protocol.

Document requests are paused with Fetch interception and run through the
navigation handler before they leave the browser: allowed requests
continue, redirects are fulfilled with a 302, everything else fails with
BlockedByClient. Page messages arrive through Runtime bindings. Page events
are translated into Observer calls posted onto the UI loop.
*/
package chrome
