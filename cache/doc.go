// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cache stores precomputed read views in Redis.

# Keys

	polls:public        JSON list of active polls with counts (TTL, minutes)
	poll:{id}:public    JSON poll detail with percentages (TTL, deleted on every vote)
	poll:{id}:history   list of JSON history entries, newest first, trimmed to N

The cache has no transactional relationship with the primary store. Callers
treat every read as a hint and every error as a miss.
*/
package cache
