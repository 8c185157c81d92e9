// Package deriver implements BIP32 non-hardened child-key derivation
// (CKDpub) with an intermediate-prefix cache, as used by the fast CPU and
// GPU search paths.
package deriver

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/ripemd160"

	"github.com/seaasses/address-artisan/pkg/pathenum"
	"github.com/seaasses/address-artisan/pkg/xpub"
)

// maxCacheEntries bounds the per-worker derivation cache before it is
// cleared wholesale.
const maxCacheEntries = 100_000

// Node is a derived extended public key: the curve point plus chain code.
type Node struct {
	ChainCode [32]byte
	PubKey    *btcec.PublicKey
}

// pathKey is the cache key: a path prefix of up to 5 indices in slots
// 0-4, and the prefix's length in slot 5, so that prefixes of different
// lengths never share a key.
type pathKey [6]uint32

// Deriver derives nodes along the fixed 6-level path shape, caching
// intermediate (non-leaf) nodes keyed by path prefix. Not safe for
// concurrent use: each CPU worker owns its own Deriver.
type Deriver struct {
	base  Node
	cache map[pathKey]Node
}

// New creates a Deriver rooted at the given extended public key.
func New(key *xpub.ExtendedPubKey) (*Deriver, error) {
	pub, err := btcec.ParsePubKey(key.PublicKey[:])
	if err != nil {
		return nil, fmt.Errorf("deriver: invalid root public key: %w", err)
	}
	return &Deriver{
		base:  Node{ChainCode: key.ChainCode, PubKey: pub},
		cache: make(map[pathKey]Node),
	}, nil
}

// DeriveHash160 walks the given path from the root, returning hash160 of
// the leaf's compressed public key.
func (d *Deriver) DeriveHash160(path pathenum.Path) ([20]byte, error) {
	node, err := d.derive(path[:])
	if err != nil {
		return [20]byte{}, err
	}
	return hash160(node.PubKey), nil
}

// Derive walks the given path from the root, returning the leaf node.
func (d *Deriver) Derive(path pathenum.Path) (Node, error) {
	return d.derive(path[:])
}

// DerivePrefix walks an arbitrary-length path segment from the root (up to
// 5 levels), returning the node reached. Used by the GPU cache builder,
// which only needs the node at the (seed0, seed1, b, a) depth rather than a
// full 6-level leaf.
func (d *Deriver) DerivePrefix(values []uint32) (Node, error) {
	return d.derive(values)
}

func (d *Deriver) derive(path []uint32) (Node, error) {
	current := d.base
	startAt := 0

	// Scan backwards for the longest cached prefix.
	for length := len(path) - 1; length >= 1; length-- {
		var key pathKey
		copy(key[:5], path[:length])
		key[5] = uint32(length)
		if node, ok := d.cache[key]; ok {
			current = node
			startAt = length
			break
		}
	}

	for i := startAt; i < len(path); i++ {
		next, err := ckdpub(current, path[i])
		if err != nil {
			return Node{}, err
		}
		current = next

		// Cache every intermediate node, but never the full leaf of a
		// 6-level path.
		if len(path) < 6 || i < len(path)-1 {
			var key pathKey
			copy(key[:5], path[:i+1])
			key[5] = uint32(i + 1)
			d.store(key, current)
		}
	}

	return current, nil
}

func (d *Deriver) store(key pathKey, node Node) {
	if len(d.cache) >= maxCacheEntries {
		d.cache = make(map[pathKey]Node)
	}
	d.cache[key] = node
}

// ckdpub performs one step of non-hardened BIP32 CKDpub.
func ckdpub(parent Node, index uint32) (Node, error) {
	if index > pathenum.MaxIndex {
		return Node{}, fmt.Errorf("deriver: index %d exceeds non-hardened range", index)
	}

	ser := parent.PubKey.SerializeCompressed()
	msg := make([]byte, 0, 37)
	msg = append(msg, ser...)
	msg = append(msg, byte(index>>24), byte(index>>16), byte(index>>8), byte(index))

	mac := hmac.New(sha512.New, parent.ChainCode[:])
	mac.Write(msg)
	i := mac.Sum(nil)

	il := i[:32]
	ir := i[32:]

	var ilScalar btcec.ModNScalar
	overflow := ilScalar.SetByteSlice(il)
	if overflow {
		return Node{}, fmt.Errorf("deriver: I_L out of curve order range")
	}

	var tweakPoint btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&ilScalar, &tweakPoint)

	var parentJacobian btcec.JacobianPoint
	parent.PubKey.AsJacobian(&parentJacobian)

	var childJacobian btcec.JacobianPoint
	btcec.AddNonConst(&parentJacobian, &tweakPoint, &childJacobian)
	childJacobian.ToAffine()

	if childJacobian.X.IsZero() && childJacobian.Y.IsZero() {
		return Node{}, fmt.Errorf("deriver: derived point is the point at infinity")
	}

	childPub := btcec.NewPublicKey(&childJacobian.X, &childJacobian.Y)

	var chainCode [32]byte
	copy(chainCode[:], ir)

	return Node{ChainCode: chainCode, PubKey: childPub}, nil
}

// hash160 computes RIPEMD160(SHA256(compressed pubkey)).
func hash160(pub *btcec.PublicKey) [20]byte {
	sha := sha256.Sum256(pub.SerializeCompressed())
	r := ripemd160.New()
	r.Write(sha[:])
	sum := r.Sum(nil)
	var out [20]byte
	copy(out[:], sum)
	return out
}
