package deriver

import (
	"encoding/hex"
	"testing"

	"github.com/seaasses/address-artisan/pkg/pathenum"
	"github.com/seaasses/address-artisan/pkg/xpub"
)

const testXpub = "xpub6CbJVZm8i81HtKFhs61SQw5tR7JxPMdYmZbrhx7UeFdkPG75dX2BNctqPdFxHLU1bKXLPotWbdfNVWmea1g3ggzEGnDAxKdpJcqCUpc5rNn"

func mustDeriver(t *testing.T) *Deriver {
	t.Helper()
	key, err := xpub.Parse(testXpub)
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(key)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDeriveDeterministic(t *testing.T) {
	d := mustDeriver(t)
	path := pathenum.CounterToPath(0, 0, 1000, 42)

	h1, err := d.DeriveHash160(path)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := d.DeriveHash160(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("derivation not deterministic: %x != %x", h1, h2)
	}
}

func TestDeriveDistinctPathsDiffer(t *testing.T) {
	d := mustDeriver(t)
	p1 := pathenum.CounterToPath(0, 0, 1000, 1)
	p2 := pathenum.CounterToPath(0, 0, 1000, 2)

	h1, err := d.DeriveHash160(p1)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := d.DeriveHash160(p2)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatalf("expected distinct hash160 for distinct paths, got %x for both", h1)
	}
}

func TestDeriveUsesCacheAcrossSharedPrefix(t *testing.T) {
	d := mustDeriver(t)
	// Share [seed0, seed1, b, a, 0] but differ only on the leaf index, so the
	// second call should hit the cached prefix derived by the first.
	p1 := pathenum.CounterToPath(0, 0, 1000, 5)
	p2 := pathenum.CounterToPath(0, 0, 1000, 6)

	if _, err := d.DeriveHash160(p1); err != nil {
		t.Fatal(err)
	}
	if len(d.cache) == 0 {
		t.Fatal("expected intermediate nodes to be cached")
	}
	if _, err := d.DeriveHash160(p2); err != nil {
		t.Fatal(err)
	}
}

func TestDeriveRejectsOutOfRangeIndex(t *testing.T) {
	d := mustDeriver(t)
	path := pathenum.Path{0, 0, 0, 0, 0, pathenum.MaxIndex}
	path[2] = pathenum.MaxIndex + 1
	if _, err := d.DeriveHash160(path); err == nil {
		t.Fatal("expected error for hardened-range index")
	}
}

func TestCacheEvictsWhenFull(t *testing.T) {
	d := mustDeriver(t)
	for i := uint64(0); i < 5; i++ {
		path := pathenum.CounterToPath(0, 0, 1000, i*1000)
		if _, err := d.DeriveHash160(path); err != nil {
			t.Fatal(err)
		}
	}
	// Force an eviction directly to confirm store() clears wholesale rather
	// than growing unbounded.
	before := len(d.cache)
	if before == 0 {
		t.Fatal("expected non-empty cache")
	}
	for i := 0; i < maxCacheEntries; i++ {
		var key pathKey
		key[0] = uint32(i)
		d.store(key, d.base)
	}
	if len(d.cache) > maxCacheEntries {
		t.Fatalf("cache grew past bound: %d", len(d.cache))
	}
}

func TestHash160Length(t *testing.T) {
	d := mustDeriver(t)
	path := pathenum.CounterToPath(0, 0, 1000, 0)
	h, err := d.DeriveHash160(path)
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodedLen(len(h)) != 40 {
		t.Fatalf("expected 20-byte hash160, got %d bytes", len(h))
	}
}
