// Package pathenum implements the deterministic bijection between a
// monotone 64-bit counter and a 6-level non-hardened BIP32 derivation path.
package pathenum

import "fmt"

// NonHardenedCount is 2^31: the modulus of the "a" level, and (times the
// max depth) the divisor that yields the "b" level.
// Matches the formula in spec.md §3 (mod 2^31), not the raw
// NON_HARDENED_MAX_INDEX (2^31 - 1) used inconsistently by one reference
// source file; see DESIGN.md.
const NonHardenedCount uint64 = 1 << 31

// MaxIndex is the largest index value accepted by non-hardened CKDpub.
const MaxIndex uint32 = 0x7FFFFFFF

// Path is the fixed 6-level derivation path shape
// [seed0, seed1, b, a, 0, index].
type Path [6]uint32

// CounterToPath maps a counter to its path for the given seeds and max
// depth. maxDepth must be in [1, MaxIndex].
func CounterToPath(seed0, seed1 uint32, maxDepth uint32, counter uint64) Path {
	m := uint64(maxDepth)

	index := counter % m
	a := (counter / m) % NonHardenedCount
	b := counter / (m * NonHardenedCount)

	return Path{seed0, seed1, uint32(b), uint32(a), 0, uint32(index)}
}

// ValidateSeed returns an error if v exceeds the non-hardened range.
func ValidateSeed(name string, v uint32) error {
	if v > MaxIndex {
		return fmt.Errorf("pathenum: %s must be <= 0x7FFFFFFF, got %#x", name, v)
	}
	return nil
}

// Iterator yields consecutive paths starting at a counter, advancing the
// counter by one per call to Next. It is a pure, stateless view over
// CounterToPath and carries no goroutine-unsafe state beyond its own
// position.
type Iterator struct {
	seed0, seed1 uint32
	maxDepth     uint32
	counter      uint64
	remaining    uint64
}

// NewIterator creates an iterator over chunkSize consecutive counters
// starting at startCounter.
func NewIterator(seed0, seed1, maxDepth uint32, startCounter, chunkSize uint64) *Iterator {
	return &Iterator{
		seed0:     seed0,
		seed1:     seed1,
		maxDepth:  maxDepth,
		counter:   startCounter,
		remaining: chunkSize,
	}
}

// Next returns the next path and true, or a zero path and false when the
// chunk is exhausted.
func (it *Iterator) Next() (Path, bool) {
	if it.remaining == 0 {
		return Path{}, false
	}
	p := CounterToPath(it.seed0, it.seed1, it.maxDepth, it.counter)
	it.counter++
	it.remaining--
	return p, true
}
