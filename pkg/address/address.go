// Package address encodes a hash160 (or the public key it is derived from)
// into the Bitcoin address text formats searched for by the rest of the
// module: legacy P2PKH base58check and native segwit v0 P2WPKH bech32.
package address

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/ripemd160"
)

const p2pkhVersion = 0x00
const bech32HRP = "bc"
const witnessVersion0 = 0

// Hash160 computes RIPEMD160(SHA256(data)), used on a compressed public key
// to obtain the 20-byte value both address formats are built from.
func Hash160(data []byte) [20]byte {
	sha := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sha[:])
	sum := r.Sum(nil)
	var out [20]byte
	copy(out[:], sum)
	return out
}

// Hash160FromPubKey is a convenience wrapper computing Hash160 of a
// compressed public key's serialization.
func Hash160FromPubKey(pub *btcec.PublicKey) [20]byte {
	return Hash160(pub.SerializeCompressed())
}

// P2PKH encodes a hash160 as a legacy base58check address, e.g.
// "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2".
func P2PKH(hash [20]byte) string {
	return base58.CheckEncode(hash[:], p2pkhVersion)
}

// P2WPKH encodes a hash160 as a native segwit v0 bech32 address, e.g.
// "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4".
func P2WPKH(hash [20]byte) (string, error) {
	converted, err := bech32.ConvertBits(hash[:], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("address: convert bits: %w", err)
	}
	data := append([]byte{witnessVersion0}, converted...)
	addr, err := bech32.Encode(bech32HRP, data)
	if err != nil {
		return "", fmt.Errorf("address: bech32 encode: %w", err)
	}
	return addr, nil
}

// Encode dispatches to P2PKH or P2WPKH based on kind, where kind is one of
// the AddressKind values from the prefix package ("P2PKH" or "P2WPKH").
func Encode(hash [20]byte, kind string) (string, error) {
	switch kind {
	case "P2PKH":
		return P2PKH(hash), nil
	case "P2WPKH":
		return P2WPKH(hash)
	default:
		return "", fmt.Errorf("address: unknown kind %q", kind)
	}
}
