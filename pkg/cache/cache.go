// Package cache defines the response cache contract and key derivation.
// Backends live in the memory and sqlite subpackages.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"slices"

	"github.com/cvforge/cvforge/pkg/models"
)

// Cache stores successful responses keyed by MakeKey. An entry whose age has
// reached the TTL is treated as absent and removed on lookup.
type Cache interface {
	Get(key string) (models.CacheEntry, bool)
	Put(key, response, model string) error
	Len() int
	Stats() (models.CacheStats, error)
	Clear(expiredOnly bool) error
	Close() error
}

// MakeKey derives a cache key from the full prompt text, the candidate
// model ids (order-insensitive), the tier and the task type. Every field is
// length-prefixed so distinct inputs cannot collide by concatenation.
func MakeKey(prompt string, candidates []string, premium bool, task models.TaskType) string {
	ids := slices.Clone(candidates)
	slices.Sort(ids)

	h := sha256.New()
	writeField(h, prompt)
	writeLen(h, len(ids))
	for _, id := range ids {
		writeField(h, id)
	}
	writeField(h, models.TierName(premium))
	writeField(h, string(task))
	return hex.EncodeToString(h.Sum(nil))
}

func writeLen(h hash.Hash, n int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	h.Write(b[:])
}

func writeField(h hash.Hash, s string) {
	writeLen(h, len(s))
	h.Write([]byte(s))
}
