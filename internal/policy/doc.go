// Package policy classifies every navigation the embedded browser surface
// attempts and decides whether it may load.
//
// Classification is an ordered routing table of (predicate, decision) rules
// evaluated first-match-wins. More specific rules come first: the
// authentication pages precede the account flows that are handed to the
// system browser, and both precede the catch-all fallback that keeps unknown
// origins out of the surface.
//
// Host comparisons are anchored (exact host or dot-separated suffix), and
// "on the host domain" is decided by registrable domain, so nottwitter.com
// never matches twitter.com.
//
// Classifier is immutable after construction and safe for concurrent use.
package policy
