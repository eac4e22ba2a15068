// Package fingerprint derives response-cache keys from request input and
// routing identity. Identical text routed to a different agent must never
// collide with another agent's cache entry, so the agent id is part of the
// hashed material.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize case-folds the input and collapses runs of whitespace so that
// trivially reformatted requests share a cache entry.
func Normalize(input string) string {
	return strings.ToLower(strings.Join(strings.Fields(input), " "))
}

// New returns the hex fingerprint for input routed to agentID.
func New(input, agentID string) string {
	h := sha256.New()
	h.Write([]byte(Normalize(input)))
	h.Write([]byte{0x1f})
	h.Write([]byte(agentID))
	return hex.EncodeToString(h.Sum(nil))
}
