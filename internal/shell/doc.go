// Package shell is the controller that ties the embedded surface to the
// hosted application.
//
// The Controller owns the navigation policy hook, the readiness detector,
// the bridge router and the shell State. Everything except the navigation
// hook runs on the UI loop; the hook only classifies and posts follow-up
// work back to the loop.
package shell
