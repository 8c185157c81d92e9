package validator

import (
	"testing"

	"github.com/seaasses/address-artisan/pkg/pathenum"
	"github.com/seaasses/address-artisan/pkg/prefix"
)

const testXpub = "xpub6CbJVZm8i81HtKFhs61SQw5tR7JxPMdYmZbrhx7UeFdkPG75dX2BNctqPdFxHLU1bKXLPotWbdfNVWmea1g3ggzEGnDAxKdpJcqCUpc5rNn"

func TestNewValidator(t *testing.T) {
	if _, err := New(testXpub); err != nil {
		t.Fatal(err)
	}
}

func TestNewValidatorInvalidXpub(t *testing.T) {
	if _, err := New("invalid"); err == nil {
		t.Fatal("expected error for invalid xpub")
	}
}

func TestDeriveAddressKnownVectors(t *testing.T) {
	v, err := New(testXpub)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		path pathenum.Path
		want string
	}{
		{pathenum.Path{1000, 2000, 0, 0, 0, 0}, "16EhLAUerc8rnmdHvBh1ABjEsddTom3FyZ"},
		{pathenum.Path{1000, 2000, 0, 0, 0, 1}, "12x9m2JaDDWZ2Pf7t97hVjymA1uHRqEd7C"},
		{pathenum.Path{1000, 2000, 0, 0, 0, 100}, "1K1g6s5LHneq2Km9rs8fGfGc2xpfsVRQ82"},
		{pathenum.Path{1000, 2000, 0, 1, 0, 0}, "14hMRf1rnTgwwdEcPYUJMq5PYWh2owCo4x"},
		{pathenum.Path{1000, 2000, 1, 0, 0, 0}, "1J57PqrPQSKP85Gd8eYRSwHS65FtorCZwB"},
		{pathenum.Path{1000, 2000, 0, 0, 0, 9999}, "1ND9xQjQWC7U2xmhapTWFSEsfsDozqkp4z"},
		{pathenum.Path{1000, 2000, 0, 100, 0, 0}, "17zbeS1wPdtncwSZCtZRptPz9MRY7ZGt9H"},
		{pathenum.Path{1000, 2000, 0, 1000, 0, 50}, "17DojH5JeQtfFbyG4yuiCmuwQrhdR8UfN3"},
		{pathenum.Path{5000, 6000, 0, 0, 0, 0}, "1LAVfqDqtFfjUSQUhZsE7TxWrQpgHRsGVF"},
		{pathenum.Path{9999, 9999, 0, 0, 0, 0}, "12Wq6aUM2jiJQWV3gSCGogWuAyYZR2otoH"},
	}

	for _, c := range cases {
		got, err := v.DeriveAddress(c.path, prefix.P2PKH)
		if err != nil {
			t.Fatalf("path %v: %v", c.path, err)
		}
		if got != c.want {
			t.Fatalf("path %v: got %s want %s", c.path, got, c.want)
		}
	}
}

func TestConfirmMatchesPrefix(t *testing.T) {
	v, err := New(testXpub)
	if err != nil {
		t.Fatal(err)
	}
	path := pathenum.Path{1000, 2000, 0, 0, 0, 0}

	for _, literal := range []string{"1", "16", "16E"} {
		p, err := prefix.New(literal)
		if err != nil {
			t.Fatal(err)
		}
		ok, addr, err := v.Confirm(path, p)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("expected prefix %q to match address %s", literal, addr)
		}
	}
}

func TestConfirmRejectsWrongPrefix(t *testing.T) {
	v, err := New(testXpub)
	if err != nil {
		t.Fatal(err)
	}
	path := pathenum.Path{1000, 2000, 0, 0, 0, 0}

	for _, literal := range []string{"17", "12"} {
		p, err := prefix.New(literal)
		if err != nil {
			t.Fatal(err)
		}
		ok, _, err := v.Confirm(path, p)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatalf("expected prefix %q not to match", literal)
		}
	}
}
