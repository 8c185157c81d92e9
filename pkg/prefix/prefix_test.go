package prefix

import (
	"encoding/hex"
	"testing"
)

func hexBytes(t *testing.T, hexStr string) [20]byte {
	t.Helper()
	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 20 {
		t.Fatalf("expected 20 bytes, got %d", len(decoded))
	}
	var out [20]byte
	copy(out[:], decoded)
	return out
}

func TestPrefixOne(t *testing.T) {
	p, err := New("1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(p.Ranges))
	}
	if p.Ranges[0].Low != ([20]byte{}) {
		t.Fatalf("expected zero low, got %x", p.Ranges[0].Low)
	}
	want := [20]byte{}
	for i := range want {
		want[i] = 0xff
	}
	if p.Ranges[0].High != want {
		t.Fatalf("expected all-ff high, got %x", p.Ranges[0].High)
	}
}

func TestPrefix1AUppercase(t *testing.T) {
	p, err := New("1A")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(p.Ranges))
	}

	wantLow1 := hexBytes(t, "01b3be603f13acdef9f6c2a7e4660900f679462e")
	wantHigh1 := hexBytes(t, "01e428dcb7dcf8f7c06782f36f8dd11d83a33188")
	if p.Ranges[0].Low != wantLow1 || p.Ranges[0].High != wantHigh1 {
		t.Fatalf("range0 mismatch: low=%x high=%x", p.Ranges[0].Low, p.Ranges[0].High)
	}

	wantLow2 := hexBytes(t, "62b921ce4a752a84a1e81a09bf1e0a37d779e689")
	wantHigh2 := hexBytes(t, "6db14201a81068219773ab27462160afd2f93909")
	if p.Ranges[1].Low != wantLow2 || p.Ranges[1].High != wantHigh2 {
		t.Fatalf("range1 mismatch: low=%x high=%x", p.Ranges[1].Low, p.Ranges[1].High)
	}
}

func TestPrefixBc1qAll(t *testing.T) {
	p, err := New("bc1q")
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != P2WPKH {
		t.Fatalf("expected P2WPKH kind")
	}
	if len(p.Ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(p.Ranges))
	}
	if p.Ranges[0].Low != ([20]byte{}) {
		t.Fatalf("expected zero low")
	}
}

func TestPrefixBc1qxyz(t *testing.T) {
	p, err := New("bc1qxyz")
	if err != nil {
		t.Fatal(err)
	}
	wantLow := hexBytes(t, "3104000000000000000000000000000000000000")
	wantHigh := hexBytes(t, "3105ffffffffffffffffffffffffffffffffffff")
	if p.Ranges[0].Low != wantLow {
		t.Fatalf("low mismatch: got %x want %x", p.Ranges[0].Low, wantLow)
	}
	if p.Ranges[0].High != wantHigh {
		t.Fatalf("high mismatch: got %x want %x", p.Ranges[0].High, wantHigh)
	}
}

func TestInvalidPrefixEmpty(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty prefix")
	}
}

func TestInvalidPrefixWrongStart(t *testing.T) {
	if _, err := New("3abc"); err == nil {
		t.Fatal("expected error for prefix not starting with 1 or bc1q")
	}
}

func TestInvalidP2PKHCharacter(t *testing.T) {
	if _, err := New("1abc0"); err == nil {
		t.Fatal("expected error: '0' is not valid base58")
	}
}

func TestInvalidP2WPKHCharacter(t *testing.T) {
	if _, err := New("bc1qabc"); err == nil {
		t.Fatal("expected error: 'b' is not valid bech32")
	}
}

func TestMatchesInclusiveRange(t *testing.T) {
	p, err := New("1")
	if err != nil {
		t.Fatal(err)
	}
	var mid [20]byte
	mid[0] = 0x42
	if !p.Matches(mid) {
		t.Fatal("expected match within full range")
	}
}
