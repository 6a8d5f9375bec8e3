package trading

import (
	"errors"
	"math/big"
	"testing"
)

func TestCheckUint256Boundaries(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if err := checkUint256(max); err != nil {
		t.Fatalf("2^256-1 must be accepted: %v", err)
	}
	over := new(big.Int).Add(max, big.NewInt(1))
	if err := checkUint256(over); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("2^256 must be rejected, got %v", err)
	}
	if err := checkUint256(big.NewInt(-1)); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("negatives must be rejected, got %v", err)
	}
	if err := checkUint256(nil); err != nil {
		t.Fatalf("nil passes the width check: %v", err)
	}
	if err := checkUint256(big.NewInt(0)); err != nil {
		t.Fatalf("zero passes the width check: %v", err)
	}
}

func TestValidateAmount(t *testing.T) {
	if err := validateAmount(big.NewInt(1)); err != nil {
		t.Fatalf("positive amount: %v", err)
	}
	if err := validateAmount(big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount, got %v", err)
	}
	if err := validateAmount(nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("nil amount, got %v", err)
	}
	over := new(big.Int).Lsh(big.NewInt(1), 256)
	if err := validateAmount(over); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("width check runs first, got %v", err)
	}
}

func TestAssetKind(t *testing.T) {
	if !KindNative.Divisible() || !KindFungible.Divisible() {
		t.Fatalf("native and fungible kinds are divisible")
	}
	if KindNonFungible.Divisible() {
		t.Fatalf("non-fungible kind is not divisible")
	}
	if KindNative.String() != "native" || KindFungible.String() != "fungible" || KindNonFungible.String() != "nonfungible" {
		t.Fatalf("unexpected kind labels")
	}
	if AssetKind(7).Valid() {
		t.Fatalf("out-of-range kind must be invalid")
	}
}

func TestNonFungibleAssetAmountFixedAtOne(t *testing.T) {
	a := NonFungibleAsset(newTestAddress(0xB1), big.NewInt(42))
	if a.Amount.Int64() != 1 {
		t.Fatalf("nft amount = %v, want 1", a.Amount)
	}
	if a.TokenID.Int64() != 42 {
		t.Fatalf("token id = %v, want 42", a.TokenID)
	}
}

func TestAssetDescriptorCloneIsDeep(t *testing.T) {
	orig := FungibleAsset(newTestAddress(0xA1), big.NewInt(100))
	clone := orig.Clone()
	clone.Amount.SetInt64(7)
	if orig.Amount.Int64() != 100 {
		t.Fatalf("clone shares the amount pointer")
	}
}

func TestSanitizePairRejectsCorruptRecords(t *testing.T) {
	token := newTestAddress(0xA1)
	other := newTestAddress(0xA2)
	good := &Pair{
		ID:       3,
		Owner:    newTestAddress(0x01),
		AssetOut: FungibleAsset(token, big.NewInt(10)),
		AssetIn:  FungibleAsset(other, big.NewInt(5)),
	}
	sanitized, err := SanitizePair(good)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if sanitized.Price == nil || sanitized.Price.Sign() != 0 {
		t.Fatalf("missing price must normalise to zero, got %v", sanitized.Price)
	}

	bad := good.Clone()
	bad.AssetOut.Amount = big.NewInt(0)
	if _, err := SanitizePair(bad); err == nil {
		t.Fatalf("zero-amount leg must be rejected")
	}
	bad = good.Clone()
	bad.AssetIn.Kind = AssetKind(9)
	if _, err := SanitizePair(bad); err == nil {
		t.Fatalf("invalid kind must be rejected")
	}
	bad = good.Clone()
	bad.AssetOut = AssetDescriptor{Kind: KindNonFungible, Address: token, Amount: big.NewInt(1)}
	if _, err := SanitizePair(bad); err == nil {
		t.Fatalf("nft leg without token id must be rejected")
	}
	if _, err := SanitizePair(nil); err == nil {
		t.Fatalf("nil pair must be rejected")
	}
}
