package trading

import (
	"fmt"
	"math/big"
)

// Pair captures one standing ask: the escrowed out-leg, the requested in-leg,
// and the terminal flag. A finished pair is retained permanently as an audit
// record and never mutated again.
type Pair struct {
	ID        uint64
	Owner     [20]byte
	AssetOut  AssetDescriptor
	AssetIn   AssetDescriptor
	Price     *big.Int
	Finished  bool
	CreatedAt int64
}

// Clone returns a deep copy of the pair so callers can safely mutate the copy
// without affecting the stored instance.
func (p *Pair) Clone() *Pair {
	if p == nil {
		return nil
	}
	clone := *p
	clone.AssetOut = p.AssetOut.Clone()
	clone.AssetIn = p.AssetIn.Clone()
	clone.Price = cloneBigInt(p.Price)
	return &clone
}

// SanitizePair validates and normalises a stored pair record, returning a
// cloned instance with non-nil amount fields. The original is not mutated.
func SanitizePair(p *Pair) (*Pair, error) {
	if p == nil {
		return nil, fmt.Errorf("trading: nil pair")
	}
	clone := p.Clone()
	if !clone.AssetOut.Kind.Valid() || !clone.AssetIn.Kind.Valid() {
		return nil, fmt.Errorf("trading: invalid asset kind on pair %d", clone.ID)
	}
	for _, leg := range []AssetDescriptor{clone.AssetOut, clone.AssetIn} {
		if leg.Amount == nil || leg.Amount.Sign() <= 0 {
			return nil, fmt.Errorf("trading: non-positive leg amount on pair %d", clone.ID)
		}
		if leg.hasAddress() && leg.Address == zeroAddress {
			return nil, fmt.Errorf("trading: zero leg address on pair %d", clone.ID)
		}
		if leg.Kind == KindNonFungible && leg.TokenID == nil {
			return nil, fmt.Errorf("trading: missing token id on pair %d", clone.ID)
		}
	}
	if clone.Price == nil {
		clone.Price = big.NewInt(0)
	}
	return clone, nil
}
