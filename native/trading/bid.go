package trading

import (
	"fmt"
	"math/big"
)

// BidToken fulfils the ask identified by id by supplying amount units of the
// fungible token the ask requests.
func (e *Engine) BidToken(id uint64, bidder [20]byte, amount *big.Int) (*Pair, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	pair, err := e.loadOpenPair(id)
	if err != nil {
		return nil, err
	}
	if pair.AssetIn.Kind != KindFungible {
		return nil, ErrInvalidPairID
	}
	if err := e.checkDivisibleBid(pair, amount); err != nil {
		return nil, err
	}
	pull := func() error {
		return e.tokens.TransferFrom(pair.AssetIn.Address, bidder, pair.Owner, amount)
	}
	rollback := func() error {
		return e.tokens.Transfer(pair.AssetIn.Address, pair.Owner, bidder, amount)
	}
	return e.settleBid(pair, bidder, pull, rollback)
}

// BidNative fulfils the ask identified by id with an attached native payment
// of value units. The transport boundary guarantees the attached payment
// equals value.
func (e *Engine) BidNative(id uint64, bidder [20]byte, value *big.Int) (*Pair, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateAmount(value); err != nil {
		return nil, err
	}
	pair, err := e.loadOpenPair(id)
	if err != nil {
		return nil, err
	}
	if pair.AssetIn.Kind != KindNative {
		return nil, ErrInvalidPairID
	}
	if err := e.checkDivisibleBid(pair, value); err != nil {
		return nil, err
	}
	pull := func() error {
		if err := e.vault.Deposit(bidder, value); err != nil {
			return err
		}
		if err := e.vault.Withdraw(pair.Owner, value); err != nil {
			// Return the deposit before surfacing the failure.
			if undoErr := e.vault.Withdraw(bidder, value); undoErr != nil {
				return fmt.Errorf("%w (refund failed: %v)", err, undoErr)
			}
			return err
		}
		return nil
	}
	rollback := func() error {
		if err := e.vault.Deposit(pair.Owner, value); err != nil {
			return err
		}
		return e.vault.Withdraw(bidder, value)
	}
	return e.settleBid(pair, bidder, pull, rollback)
}

// BidNFT fulfils the ask identified by id by supplying the unique token the
// ask requests.
func (e *Engine) BidNFT(id uint64, bidder [20]byte, tokenID *big.Int) (*Pair, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkUint256(tokenID); err != nil {
		return nil, err
	}
	pair, err := e.loadOpenPair(id)
	if err != nil {
		return nil, err
	}
	if pair.AssetIn.Kind != KindNonFungible {
		return nil, ErrInvalidPairID
	}
	if tokenID == nil || pair.AssetIn.TokenID == nil || pair.AssetIn.TokenID.Cmp(tokenID) != 0 {
		return nil, ErrIncorrectTokenID
	}
	pull := func() error {
		return e.nfts.TransferFrom(pair.AssetIn.Address, bidder, pair.Owner, tokenID)
	}
	rollback := func() error {
		return e.nfts.Transfer(pair.AssetIn.Address, pair.Owner, bidder, tokenID)
	}
	return e.settleBid(pair, bidder, pull, rollback)
}

// checkDivisibleBid enforces the quantity-matching rules for divisible
// in-legs: the bid must not exceed the asked amount, and an indivisible
// out-leg cannot be partially paid for.
func (e *Engine) checkDivisibleBid(pair *Pair, amount *big.Int) error {
	if amount.Cmp(pair.AssetIn.Amount) > 0 {
		return ErrExcessiveAmount
	}
	if pair.AssetOut.Kind == KindNonFungible && amount.Cmp(pair.AssetIn.Amount) != 0 {
		return ErrIncorrectAmount
	}
	return nil
}

// settleBid applies the two-phase swap: pull the in-leg from the bidder to the
// owner, release the out-leg from escrow to the bidder, then mark the pair
// finished. Any failure unwinds the steps already applied so the open pair
// still owns its escrow; an unwind failure rides along in the returned error.
func (e *Engine) settleBid(pair *Pair, bidder [20]byte, pull, rollback func() error) (*Pair, error) {
	if err := pull(); err != nil {
		return nil, err
	}
	if err := e.releaseOutLeg(pair, bidder); err != nil {
		if rbErr := rollback(); rbErr != nil {
			return nil, fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return nil, err
	}
	if err := e.state.PairMarkFinished(pair.ID); err != nil {
		// Both legs committed but the pair is still open: reverse them.
		if undoErr := e.reclaimOutLeg(pair, bidder); undoErr != nil {
			return nil, fmt.Errorf("%w (escrow reclaim failed: %v)", err, undoErr)
		}
		if rbErr := rollback(); rbErr != nil {
			return nil, fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return nil, err
	}
	pair.Finished = true
	e.emit(NewBidExecutedEvent(bidder, pair))
	return pair.Clone(), nil
}
