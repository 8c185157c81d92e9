// Package gpucache maintains the host-side mirror of the GPU-resident
// intermediate-key cache: a keyed table of (b, a) -> parent node data that
// is rebuilt each time the search window's cache_range analysis produces a
// new key set, and otherwise left untouched to avoid needless GPU uploads.
package gpucache

import (
	"fmt"

	"github.com/seaasses/address-artisan/pkg/cacherange"
	"github.com/seaasses/address-artisan/pkg/deriver"
)

// Entry pairs a cache key with the node data the GPU kernel needs to resume
// derivation from that point: the chain code and the affine curve point.
type Entry struct {
	Key       cacherange.Key
	ChainCode [32]byte
	X, Y      [32]byte
}

// Cache mirrors the GPU-resident keyed table. Capacity bounds how many
// entries can be staged at once; Replace reports whether the key set
// changed and thus whether the caller must actually re-upload to the
// device.
type Cache struct {
	capacity int
	lastKeys []cacherange.Key
	entries  []Entry
}

// New creates a Cache with the given capacity, matching the fixed-size
// GPU buffers it mirrors.
func New(capacity int) *Cache {
	return &Cache{capacity: capacity}
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Size returns the number of entries currently staged.
func (c *Cache) Size() int {
	return len(c.entries)
}

// Entries returns the currently staged entries.
func (c *Cache) Entries() []Entry {
	return c.entries
}

// Replace stages a new set of entries, built by deriving each key's node
// from the given Deriver's root. It returns true when the key set differs
// from what was previously staged (meaning the caller must re-upload to
// the GPU), or false when the keys are unchanged and no upload is needed.
func (c *Cache) Replace(d *deriver.Deriver, keys []cacherange.Key, seed0, seed1 uint32) (bool, error) {
	if len(keys) > c.capacity {
		return false, fmt.Errorf("gpucache: %d keys exceeds capacity %d", len(keys), c.capacity)
	}

	if sameKeys(c.lastKeys, keys) {
		return false, nil
	}

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		node, err := d.DerivePrefix([]uint32{seed0, seed1, k.B, k.A})
		if err != nil {
			return false, fmt.Errorf("gpucache: deriving key %+v: %w", k, err)
		}
		entry := Entry{Key: k, ChainCode: node.ChainCode}
		uncompressed := node.PubKey.SerializeUncompressed()
		copy(entry.X[:], uncompressed[1:33])
		copy(entry.Y[:], uncompressed[33:65])
		entries = append(entries, entry)
	}

	c.entries = entries
	c.lastKeys = append([]cacherange.Key(nil), keys...)
	return true, nil
}

func sameKeys(a, b []cacherange.Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
