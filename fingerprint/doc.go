// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package fingerprint pseudonymizes email addresses into fixed-size keyed digests.

# Normalization

Every downstream component works on the canonical form:

	normalized := fingerprint.Normalize("  Alice@Example.COM ")  // "alice@example.com"
	prefix := fingerprint.Prefix2(normalized)                    // "al"

# Fingerprints

A Hasher is keyed with a process-wide secret (the pepper):

	h := fingerprint.New(cfg.HMACPepper)
	fp := h.PerPoll(7, normalized)   // HMAC-SHA256(pepper, "7:alice@example.com")
	g := h.Global(normalized)        // HMAC-SHA256(pepper, "alice@example.com")

Per-poll fingerprints identify a voter inside one poll only; the global
fingerprint is used for the cross-poll contact ledger. Raw addresses are never
stored for counting purposes.

If the pepper is empty, New logs a warning and uses DefaultPepper.

# Comparison and Transport

Fingerprints compared outside of a storage equality check must use Equal,
which runs in constant time. On the wire (Redis keys and stream fields)
fingerprints travel as standard base64:

	key := fingerprint.Encode(fp)
	fp, err := fingerprint.Decode(key)
*/
package fingerprint
