// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package dedup implements the fast duplicate-vote barrier on Redis.
//
// Admit issues SET vote:poll:{pollId}:fp:{fingerprintBase64} 1 EX ttl NX and
// reports whether the key was newly set. The barrier rejects obvious
// duplicates before they reach the event log; it never decides whether a vote
// is counted. When Redis is unreachable the barrier either admits the vote
// (fail-open, the default) or returns ErrUnavailable (fail-closed).
package dedup
