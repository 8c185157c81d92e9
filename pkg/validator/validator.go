// Package validator independently re-derives and re-encodes a candidate
// match reported by a workbench, using a trusted BIP32 implementation
// rather than the fast derivation path the search loop uses. This is the
// authoritative check a PotentialMatch must pass before it is reported as
// a confirmed find.
package validator

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/seaasses/address-artisan/pkg/address"
	"github.com/seaasses/address-artisan/pkg/pathenum"
	"github.com/seaasses/address-artisan/pkg/prefix"
)

// Validator re-derives addresses along a path using hdkeychain, a
// dependency entirely independent of this module's own BIP32 code.
type Validator struct {
	root *hdkeychain.ExtendedKey
}

// New creates a Validator rooted at the given extended public key string.
func New(xpubStr string) (*Validator, error) {
	key, err := hdkeychain.NewKeyFromString(xpubStr)
	if err != nil {
		return nil, fmt.Errorf("validator: invalid xpub: %w", err)
	}
	return &Validator{root: key}, nil
}

// DeriveAddress walks path via hdkeychain's own non-hardened derivation
// and encodes the resulting public key as the given address kind.
func (v *Validator) DeriveAddress(path pathenum.Path, kind prefix.AddressKind) (string, error) {
	current := v.root
	for _, index := range path {
		next, err := current.DeriveNonStandard(index)
		if err != nil {
			return "", fmt.Errorf("validator: deriving index %d: %w", index, err)
		}
		current = next
	}

	pub, err := current.ECPubKey()
	if err != nil {
		return "", fmt.Errorf("validator: extracting public key: %w", err)
	}

	hash := address.Hash160FromPubKey(pub)
	return address.Encode(hash, kind.String())
}

// Confirm re-derives the address at path and reports whether it actually
// satisfies p. A PotentialMatch from any workbench must pass this check
// before being treated as a confirmed find.
func (v *Validator) Confirm(path pathenum.Path, p *prefix.Prefix) (bool, string, error) {
	addr, err := v.DeriveAddress(path, p.Kind)
	if err != nil {
		return false, "", err
	}
	return len(addr) >= len(p.Literal) && addr[:len(p.Literal)] == p.Literal, addr, nil
}
