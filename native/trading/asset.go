package trading

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// AssetKind discriminates the three asset representations handled by the
// engine. The wire values match the original deployment (0/1/2).
type AssetKind uint8

const (
	KindNative AssetKind = iota
	KindFungible
	KindNonFungible
)

// Valid reports whether the kind value is within the supported range.
func (k AssetKind) Valid() bool {
	switch k {
	case KindNative, KindFungible, KindNonFungible:
		return true
	default:
		return false
	}
}

// Divisible reports whether assets of this kind are quantified by amount.
func (k AssetKind) Divisible() bool {
	return k == KindNative || k == KindFungible
}

// String returns the canonical lowercase label for the kind.
func (k AssetKind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindFungible:
		return "fungible"
	case KindNonFungible:
		return "nonfungible"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// AssetDescriptor describes one leg of a pair. Address is meaningful for every
// kind except KindNative; TokenID is meaningful only for KindNonFungible,
// whose Amount is fixed at one.
type AssetDescriptor struct {
	Kind    AssetKind
	Address [20]byte
	Amount  *big.Int
	TokenID *big.Int
}

// NativeAsset describes a quantity of the native unit of value.
func NativeAsset(amount *big.Int) AssetDescriptor {
	return AssetDescriptor{Kind: KindNative, Amount: cloneBigInt(amount)}
}

// FungibleAsset describes a quantity of the divisible token at address.
func FungibleAsset(address [20]byte, amount *big.Int) AssetDescriptor {
	return AssetDescriptor{Kind: KindFungible, Address: address, Amount: cloneBigInt(amount)}
}

// NonFungibleAsset describes the unique token identified by tokenID within the
// collection at address.
func NonFungibleAsset(address [20]byte, tokenID *big.Int) AssetDescriptor {
	return AssetDescriptor{
		Kind:    KindNonFungible,
		Address: address,
		Amount:  big.NewInt(1),
		TokenID: cloneBigInt(tokenID),
	}
}

// Clone returns a deep copy of the descriptor.
func (a AssetDescriptor) Clone() AssetDescriptor {
	clone := a
	clone.Amount = cloneBigInt(a.Amount)
	if a.TokenID != nil {
		clone.TokenID = new(big.Int).Set(a.TokenID)
	}
	return clone
}

// hasAddress reports whether the descriptor carries a meaningful address.
func (a AssetDescriptor) hasAddress() bool {
	return a.Kind != KindNative
}

var zeroAddress [20]byte

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// checkUint256 rejects values outside the representable unsigned 256-bit
// width. This is the boundary guard; zero values pass here and are caught by
// business validation instead.
func checkUint256(v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 {
		return ErrValueOutOfRange
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return ErrValueOutOfRange
	}
	return nil
}

// validateAmount enforces a strictly positive quantity.
func validateAmount(v *big.Int) error {
	if err := checkUint256(v); err != nil {
		return err
	}
	if v == nil || v.Sign() == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// validateAddress enforces a non-zero address for legs that require one.
func validateAddress(addr [20]byte) error {
	if addr == zeroAddress {
		return ErrZeroAddress
	}
	return nil
}
