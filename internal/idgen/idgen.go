// Package idgen provides cryptographically random ID generation for ledger
// entities (threats, transactions, policies).
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// UUID generates a random UUID-formatted ID. Threat IDs use this shape:
// "threat_" + UUID.
func UUID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// WithPrefix generates a random ID with a prefix (e.g. "tx_", "policy_").
// Result is prefix + 24 hex chars (12 random bytes), enough entropy that
// collisions are negligible at any realistic ledger volume.
func WithPrefix(prefix string) string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}
