/*
Package session prepares the browser storage the shell runs on.

Nothing survives a run. Each launch gets a fresh throwaway profile
directory, profiles left behind by a previous run are purged first, the HTTP
cache is disabled and per-origin storage is pinned to a zero-byte quota once
the browser is up. Developer tools stay available.
*/
package session
