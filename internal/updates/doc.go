/*
Package updates checks the project's release feed for newer versions.

The feed is a GitHub "latest release" document. Checks go through resty on
top of a retrying transport, are rate limited, and sit behind a circuit
breaker so an unreachable feed is skipped instead of hammered. Versions are
compared as semver; drafts and prereleases are ignored. Release notes are
reduced to plain text before they reach the page.
*/
package updates
