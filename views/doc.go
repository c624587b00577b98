// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package views serves the public read paths from the Redis cache and keeps
// that cache in step with the primary store after each recorded vote.
//
// Cached values may lag the store by up to their TTL. The detail view is
// deleted on every vote so it lags by at most one read.
package views
