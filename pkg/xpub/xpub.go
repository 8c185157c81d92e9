// Package xpub parses and serializes BIP32 extended public keys (xpub).
package xpub

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
)

// mainnetVersion is the 4-byte version prefix for a mainnet xpub.
var mainnetVersion = [4]byte{0x04, 0x88, 0xb2, 0x1e}

const (
	payloadLen  = 78 // version(4) depth(1) fingerprint(4) childnum(4) chaincode(32) pubkey(33)
	checksumLen = 4
	encodedLen  = payloadLen + checksumLen
)

// ExtendedPubKey is a parsed BIP32 extended public key.
type ExtendedPubKey struct {
	Depth             byte
	ParentFingerprint [4]byte
	ChildNumber       uint32
	ChainCode         [32]byte
	PublicKey         [33]byte // compressed secp256k1 point
}

// Parse decodes a base58check-encoded mainnet xpub string.
func Parse(s string) (*ExtendedPubKey, error) {
	decoded := base58.Decode(s)
	if len(decoded) != encodedLen {
		return nil, fmt.Errorf("xpub: invalid length %d, want %d", len(decoded), encodedLen)
	}

	payload := decoded[:payloadLen]
	checksum := decoded[payloadLen:]

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(checksum, second[:checksumLen]) {
		return nil, fmt.Errorf("xpub: checksum mismatch")
	}

	var version [4]byte
	copy(version[:], payload[0:4])
	if version != mainnetVersion {
		return nil, fmt.Errorf("xpub: unexpected version bytes %x", version)
	}

	key := &ExtendedPubKey{
		Depth:       payload[4],
		ChildNumber: uint32(payload[9])<<24 | uint32(payload[10])<<16 | uint32(payload[11])<<8 | uint32(payload[12]),
	}
	copy(key.ParentFingerprint[:], payload[5:9])
	copy(key.ChainCode[:], payload[13:45])
	copy(key.PublicKey[:], payload[45:78])

	if _, err := btcec.ParsePubKey(key.PublicKey[:]); err != nil {
		return nil, fmt.Errorf("xpub: embedded public key is invalid: %w", err)
	}

	return key, nil
}

// Serialize encodes the extended public key back into base58check form.
func (k *ExtendedPubKey) Serialize() string {
	payload := make([]byte, payloadLen)
	copy(payload[0:4], mainnetVersion[:])
	payload[4] = k.Depth
	copy(payload[5:9], k.ParentFingerprint[:])
	payload[9] = byte(k.ChildNumber >> 24)
	payload[10] = byte(k.ChildNumber >> 16)
	payload[11] = byte(k.ChildNumber >> 8)
	payload[12] = byte(k.ChildNumber)
	copy(payload[13:45], k.ChainCode[:])
	copy(payload[45:78], k.PublicKey[:])

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])

	full := append(payload, second[:checksumLen]...)
	return base58.Encode(full)
}
