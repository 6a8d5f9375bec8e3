package trading

import "fmt"

// RemoveAsk cancels the open ask identified by id and hands the escrowed
// out-leg back to its owner. Only the creator may cancel; a finished pair can
// never be cancelled again.
func (e *Engine) RemoveAsk(id uint64, caller [20]byte) (*Pair, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pair, err := e.loadOpenPair(id)
	if err != nil {
		return nil, err
	}
	if pair.Owner != caller {
		return nil, ErrNotAskOwner
	}
	if err := e.releaseOutLeg(pair, pair.Owner); err != nil {
		return nil, err
	}
	if err := e.state.PairMarkFinished(pair.ID); err != nil {
		// The escrow is already back with the owner while the pair stays
		// open; re-escrow it or a later cancel would release it twice.
		if undoErr := e.reclaimOutLeg(pair, pair.Owner); undoErr != nil {
			return nil, fmt.Errorf("%w (escrow reclaim failed: %v)", err, undoErr)
		}
		return nil, err
	}
	pair.Finished = true
	e.emit(NewAskRemovedEvent(pair))
	return pair.Clone(), nil
}

// GetPairByID returns the full pair record for id.
func (e *Engine) GetPairByID(id uint64) (*Pair, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if id >= e.state.PairCount() {
		return nil, ErrIDOutOfRange
	}
	pair, ok := e.state.PairGet(id)
	if !ok {
		return nil, ErrIDOutOfRange
	}
	return SanitizePair(pair)
}

// PairCount returns the number of pairs ever registered, finished included.
func (e *Engine) PairCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.PairCount(), nil
}
