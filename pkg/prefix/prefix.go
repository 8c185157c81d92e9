// Package prefix compiles a user-facing vanity address prefix into a small
// set of hash160 byte ranges that are a tight superset of all hash160
// values whose encoded address begins with that prefix.
package prefix

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/mr-tron/base58"
)

// AddressKind distinguishes which encoding a prefix targets.
type AddressKind int

const (
	// P2PKH is the legacy base58check address type ("1...").
	P2PKH AddressKind = iota
	// P2WPKH is the bech32 v0 witness address type ("bc1q...").
	P2WPKH
)

func (k AddressKind) String() string {
	if k == P2WPKH {
		return "P2WPKH"
	}
	return "P2PKH"
}

// Hash160Range is an inclusive [Low, High] interval over 20-byte hash160
// space.
type Hash160Range struct {
	Low, High [20]byte
}

// Prefix is a compiled vanity prefix: its literal text, the address kind it
// targets, and the disjoint-ish ranges that are a superset of all matching
// hash160s.
type Prefix struct {
	Literal string
	Kind    AddressKind
	Ranges  []Hash160Range
}

const base58Charset = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// New validates and compiles a vanity prefix. It must start with "1"
// (P2PKH) or "bc1q" (P2WPKH).
func New(s string) (*Prefix, error) {
	if s == "" {
		return nil, fmt.Errorf("prefix: cannot be empty")
	}

	var kind AddressKind
	switch {
	case strings.HasPrefix(s, "bc1q"):
		rest := s[len("bc1q"):]
		for _, c := range rest {
			if !strings.ContainsRune(bech32Charset, c) {
				return nil, fmt.Errorf("prefix: invalid bech32 character: %q", c)
			}
		}
		kind = P2WPKH
	case strings.HasPrefix(s, "1"):
		for _, c := range s {
			if !strings.ContainsRune(base58Charset, c) {
				return nil, fmt.Errorf("prefix: invalid base58 character: %q", c)
			}
		}
		kind = P2PKH
	default:
		return nil, fmt.Errorf("prefix: must start with '1' (P2PKH) or 'bc1q' (P2WPKH)")
	}

	var ranges []Hash160Range
	switch kind {
	case P2PKH:
		ranges = p2pkhRanges(s)
	case P2WPKH:
		ranges = p2wpkhRanges(s)
	}

	return &Prefix{Literal: s, Kind: kind, Ranges: ranges}, nil
}

// Matches reports whether hash falls inside any of the prefix's ranges.
func (p *Prefix) Matches(hash [20]byte) bool {
	for _, r := range p.Ranges {
		if cmp20(hash, r.Low) >= 0 && cmp20(hash, r.High) <= 0 {
			return true
		}
	}
	return false
}

func cmp20(a, b [20]byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

var (
	big1  = big.NewInt(1)
	big58 = big.NewInt(58)
)

func p2pkhRanges(prefixStr string) []Hash160Range {
	nonOnes := prefixStr
	onesCount := 0
	for strings.HasPrefix(nonOnes, "1") {
		nonOnes = nonOnes[1:]
		onesCount++
	}

	b58top := 0
	if nonOnes != "" {
		b58top = int(base58ToBigInt(nonOnes[:1]).Int64())
	}

	n := big.NewInt(0)
	if nonOnes != "" {
		n = base58ToBigInt(nonOnes)
	}

	ceilingShift := uint(200 - onesCount*8)
	ceiling := new(big.Int).Sub(new(big.Int).Lsh(big1, ceilingShift), big1)

	floor := big.NewInt(0)
	if nonOnes != "" {
		floorShift := uint(192 - onesCount*8)
		floor = new(big.Int).Lsh(big1, floorShift)
	}

	b58pow := 0
	temp := new(big.Int).Set(ceiling)
	for temp.Cmp(big58) >= 0 {
		b58pow++
		temp.Div(temp, big58)
	}
	b58ceil := int(temp.Int64())

	k := b58pow - len(nonOnes)

	var low, high *big.Int
	if n.Sign() > 0 {
		multiplier := new(big.Int).Exp(big58, big.NewInt(int64(k)), nil)
		low = new(big.Int).Mul(n, multiplier)
		high = new(big.Int).Sub(new(big.Int).Mul(new(big.Int).Add(n, big1), multiplier), big1)
	} else {
		low = big.NewInt(0)
		high = new(big.Int).Set(ceiling)
	}

	checkUpper := false
	low2 := big.NewInt(0)
	high2 := big.NewInt(0)

	if b58top <= b58ceil {
		checkUpper = true
		low2 = new(big.Int).Mul(low, big58)
		high2 = new(big.Int).Add(new(big.Int).Mul(high, big58), big.NewInt(57))
	}

	if checkUpper {
		if low2.Cmp(ceiling) > 0 {
			checkUpper = false
		} else if high2.Cmp(ceiling) > 0 {
			high2 = new(big.Int).Set(ceiling)
		}
	}

	if high.Cmp(floor) < 0 {
		if !checkUpper {
			return nil
		}
		low = low2
		high = high2
		checkUpper = false
	} else if low.Cmp(floor) < 0 {
		low = floor
	}

	low = maxBig(low, floor)
	high = minBig(high, ceiling)

	ranges := []Hash160Range{{
		Low:  addressIntToHash160(low),
		High: addressIntToHash160(high),
	}}

	if checkUpper {
		low2 = maxBig(low2, floor)
		high2 = minBig(high2, ceiling)
		ranges = append(ranges, Hash160Range{
			Low:  addressIntToHash160(low2),
			High: addressIntToHash160(high2),
		})
	}

	return dedupConsecutive(ranges)
}

func dedupConsecutive(ranges []Hash160Range) []Hash160Range {
	out := ranges[:0:0]
	for i, r := range ranges {
		if i > 0 && r == ranges[i-1] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func base58ToBigInt(s string) *big.Int {
	decoded, err := base58.Decode(s)
	if err != nil {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(decoded)
}

// addressIntToHash160 takes a big-endian integer representing a 25-byte
// P2PKH payload (version || hash160 || checksum) and extracts the central
// 20 bytes.
func addressIntToHash160(num *big.Int) [20]byte {
	bytes := num.Bytes()
	var full [25]byte
	if len(bytes) <= 25 {
		copy(full[25-len(bytes):], bytes)
	} else {
		copy(full[:], bytes[len(bytes)-25:])
	}
	var result [20]byte
	copy(result[:], full[1:21])
	return result
}

func p2wpkhRanges(prefixStr string) []Hash160Range {
	rest := prefixStr[len("bc1q"):]
	if rest == "" {
		return []Hash160Range{{
			Low:  [20]byte{},
			High: [20]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		}}
	}

	remainingLen := 32 - len(rest)
	minStr := rest + strings.Repeat("q", remainingLen)
	maxStr := rest + strings.Repeat("l", remainingLen)

	minInt := bech32ToBigInt(minStr)
	maxInt := bech32ToBigInt(maxStr)

	return []Hash160Range{{
		Low:  bigIntTo20Bytes(minInt),
		High: bigIntTo20Bytes(maxInt),
	}}
}

func bech32ToBigInt(s string) *big.Int {
	value := big.NewInt(0)
	base := big.NewInt(32)
	for _, c := range s {
		idx := strings.IndexRune(bech32Charset, c)
		if idx < 0 {
			return big.NewInt(0)
		}
		value.Mul(value, base)
		value.Add(value, big.NewInt(int64(idx)))
	}
	return value
}

func bigIntTo20Bytes(num *big.Int) [20]byte {
	bytes := num.Bytes()
	var result [20]byte
	copy(result[20-len(bytes):], bytes)
	return result
}

func maxBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
