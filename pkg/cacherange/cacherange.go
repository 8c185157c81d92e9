// Package cacherange enumerates the (b, a) intermediate-key cache
// coordinates touched by a window of the path enumerator's counter space.
package cacherange

import (
	"fmt"

	"github.com/seaasses/address-artisan/pkg/pathenum"
)

// maxReasonableKeys is a safety cap against pathological (max_depth,
// window) combinations producing an unbounded key list.
const maxReasonableKeys = 100_000_000

// Key identifies an intermediate cache entry by its (b, a) coordinates.
type Key struct {
	B, A uint32
}

// Analyze returns every (b, a) key touched by counters in
// [startCounter, startCounter+count), in lexicographic (b, a) order.
func Analyze(startCounter, count uint64, maxDepth uint32) ([]Key, error) {
	if count == 0 {
		return nil, nil
	}

	first := counterToKey(startCounter, maxDepth)
	last := counterToKey(startCounter+count-1, maxDepth)

	return keysBetween(first, last)
}

func counterToKey(counter uint64, maxDepth uint32) Key {
	m := uint64(maxDepth)
	a := (counter / m) % pathenum.NonHardenedCount
	b := counter / (m * pathenum.NonHardenedCount)
	return Key{B: uint32(b), A: uint32(a)}
}

func nextKey(k Key) Key {
	newA := uint64(k.A) + 1
	newB := k.B + uint32(newA/pathenum.NonHardenedCount)
	return Key{B: newB, A: uint32(newA % pathenum.NonHardenedCount)}
}

func keysBetween(first, last Key) ([]Key, error) {
	keys := make([]Key, 0, 1)
	current := first
	for {
		keys = append(keys, current)
		if current == last {
			break
		}
		current = nextKey(current)

		if len(keys) > maxReasonableKeys {
			return nil, fmt.Errorf(
				"cacherange: would generate more than %d keys; first=%v last=%v",
				maxReasonableKeys, first, last)
		}
	}
	return keys, nil
}
