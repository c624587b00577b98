// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// DefaultPepper is used when no pepper is configured. Running with it is a
// deployment misconfiguration: fingerprints become guessable offline.
const DefaultPepper = "default-pepper-change-in-production"

// Size is the length in bytes of every fingerprint.
const Size = sha256.Size

var ErrInvalidFingerprint = errors.New("invalid fingerprint encoding")

// Hasher computes keyed fingerprints of normalized email addresses.
type Hasher struct {
	pepper []byte
}

// New returns a Hasher keyed with pepper. An empty pepper falls back to
// DefaultPepper and logs a warning instead of failing.
func New(pepper string) *Hasher {
	if pepper == "" {
		slog.Warn("HMAC pepper not configured, using insecure default")
		pepper = DefaultPepper
	}
	return &Hasher{pepper: []byte(pepper)}
}

// Normalize trims whitespace and lower-cases an email address.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Prefix2 returns the first two characters of a normalized email, used for
// masked display in vote history.
func Prefix2(normalized string) string {
	r := []rune(normalized)
	if len(r) < 2 {
		return string(r)
	}
	return string(r[:2])
}

// PerPoll returns HMAC(pepper, "pollID:normalized"). The same identity yields
// unlinkable fingerprints across polls.
func (h *Hasher) PerPoll(pollID int64, normalized string) []byte {
	return h.sum(strconv.FormatInt(pollID, 10) + ":" + normalized)
}

// Global returns HMAC(pepper, normalized), used only for the contact ledger.
func (h *Hasher) Global(normalized string) []byte {
	return h.sum(normalized)
}

func (h *Hasher) sum(input string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(input))
	return mac.Sum(nil)
}

// Equal compares two fingerprints in constant time.
func Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// Encode returns the transport encoding (standard base64) of a fingerprint.
func Encode(fp []byte) string {
	return base64.StdEncoding.EncodeToString(fp)
}

// Decode parses a transport-encoded fingerprint and checks its length.
func Decode(s string) ([]byte, error) {
	fp, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidFingerprint
	}
	if len(fp) != Size {
		return nil, ErrInvalidFingerprint
	}
	return fp, nil
}
