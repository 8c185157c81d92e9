package gpucache

import (
	"testing"

	"github.com/seaasses/address-artisan/pkg/cacherange"
	"github.com/seaasses/address-artisan/pkg/deriver"
	"github.com/seaasses/address-artisan/pkg/xpub"
)

const testXpub = "xpub6CbJVZm8i81HtKFhs61SQw5tR7JxPMdYmZbrhx7UeFdkPG75dX2BNctqPdFxHLU1bKXLPotWbdfNVWmea1g3ggzEGnDAxKdpJcqCUpc5rNn"

func mustDeriver(t *testing.T) *deriver.Deriver {
	t.Helper()
	key, err := xpub.Parse(testXpub)
	if err != nil {
		t.Fatal(err)
	}
	d, err := deriver.New(key)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestReplacePopulatesEntries(t *testing.T) {
	d := mustDeriver(t)
	c := New(1000)
	keys := []cacherange.Key{{B: 0, A: 0}, {B: 0, A: 1}}

	changed, err := c.Replace(d, keys, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected first replace to report changed")
	}
	if c.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Size())
	}
}

func TestReplaceSameKeysNoOp(t *testing.T) {
	d := mustDeriver(t)
	c := New(1000)
	keys := []cacherange.Key{{B: 0, A: 0}}

	if _, err := c.Replace(d, keys, 0, 0); err != nil {
		t.Fatal(err)
	}
	changed, err := c.Replace(d, keys, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("expected no-op replace with identical key set")
	}
}

func TestReplaceDifferentKeysReportsChanged(t *testing.T) {
	d := mustDeriver(t)
	c := New(1000)

	if _, err := c.Replace(d, []cacherange.Key{{B: 0, A: 0}}, 0, 0); err != nil {
		t.Fatal(err)
	}
	changed, err := c.Replace(d, []cacherange.Key{{B: 0, A: 1}}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected changed key set to report true")
	}
}

func TestReplaceExceedsCapacity(t *testing.T) {
	d := mustDeriver(t)
	c := New(1)
	keys := []cacherange.Key{{B: 0, A: 0}, {B: 0, A: 1}}
	if _, err := c.Replace(d, keys, 0, 0); err == nil {
		t.Fatal("expected error exceeding capacity")
	}
}
