package trading

import "math/big"

// defaultPriceDecimal is the fixed-point scaling constant used to express a
// divisible/divisible exchange ratio without fractional arithmetic. It is set
// once at engine construction and never changes.
var defaultPriceDecimal = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// pairPrice returns floor(outAmount * priceDecimal / inAmount) when both legs
// are divisible, and zero otherwise; an indivisible leg has no fractional
// price meaning in this model. big.Int arithmetic keeps the intermediate
// product exact for full 256-bit operands.
func pairPrice(out, in AssetDescriptor, priceDecimal *big.Int) *big.Int {
	if !out.Kind.Divisible() || !in.Kind.Divisible() {
		return big.NewInt(0)
	}
	if in.Amount == nil || in.Amount.Sign() == 0 {
		return big.NewInt(0)
	}
	price := new(big.Int).Mul(cloneBigInt(out.Amount), priceDecimal)
	return price.Div(price, in.Amount)
}
