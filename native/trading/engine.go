package trading

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"assetswap/core/events"
	"assetswap/core/types"
)

var (
	errNilState   = errors.New("trading engine: state not configured")
	errNilCustody = errors.New("trading engine: custody not configured")
)

// engineState is the registry abstraction injected into the engine. Append
// assigns the next dense identifier; records are never deleted.
type engineState interface {
	PairAppend(*Pair) (uint64, error)
	PairGet(id uint64) (*Pair, bool)
	PairCount() uint64
	PairMarkFinished(id uint64) error
}

// NativeVault moves the native unit of value between caller accounts and the
// engine's escrow balance.
type NativeVault interface {
	Deposit(from [20]byte, amount *big.Int) error
	Withdraw(to [20]byte, amount *big.Int) error
}

// TokenCustody is the fungible-token transfer primitive. TransferFrom consumes
// the from-address's allowance granted to the engine; Transfer is the
// custodial move used for releases out of escrow and for rollbacks.
type TokenCustody interface {
	TransferFrom(token, from, to [20]byte, amount *big.Int) error
	Transfer(token, from, to [20]byte, amount *big.Int) error
}

// NFTCustody is the unique-token transfer primitive. OwnerOf backs the
// self-fulfilment guard on ask creation.
type NFTCustody interface {
	OwnerOf(collection [20]byte, tokenID *big.Int) ([20]byte, error)
	TransferFrom(collection, from, to [20]byte, tokenID *big.Int) error
	Transfer(collection, from, to [20]byte, tokenID *big.Int) error
}

type tradingEvent struct {
	evt *types.Event
}

func (e tradingEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// EventAttributes hands subscribers a detached copy of the payload.
func (e tradingEvent) EventAttributes() map[string]string { return e.evt.CloneAttributes() }

func (e tradingEvent) Event() *types.Event { return e.evt }

// Engine matches escrow-backed asks with bids over native, fungible and
// non-fungible assets. Every state-changing operation runs under one lock so
// the finished check-and-set cannot interleave with the transfer effects.
type Engine struct {
	mu           sync.Mutex
	state        engineState
	vault        NativeVault
	tokens       TokenCustody
	nfts         NFTCustody
	vaultAddr    [20]byte
	emitter      events.Emitter
	priceDecimal *big.Int
	nowFn        func() int64
}

// NewEngine creates a trading engine with a no-op emitter and the default
// fixed-point price scale. Callers wire state and custody before use.
func NewEngine() *Engine {
	return &Engine{
		emitter:      events.NoopEmitter{},
		priceDecimal: new(big.Int).Set(defaultPriceDecimal),
		nowFn:        func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the registry backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCustody configures the per-kind transfer primitives and the address that
// holds escrowed assets on the engine's behalf.
func (e *Engine) SetCustody(vaultAddr [20]byte, vault NativeVault, tokens TokenCustody, nfts NFTCustody) {
	e.vaultAddr = vaultAddr
	e.vault = vault
	e.tokens = tokens
	e.nfts = nfts
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// PriceDecimal returns the immutable fixed-point scaling constant.
func (e *Engine) PriceDecimal() *big.Int {
	return new(big.Int).Set(e.priceDecimal)
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(tradingEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) checkWired() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.vault == nil || e.tokens == nil || e.nfts == nil {
		return errNilCustody
	}
	return nil
}

// CreateAskTokenToToken escrows amountOut of tokenOut against amountIn of
// tokenIn.
func (e *Engine) CreateAskTokenToToken(owner, tokenOut [20]byte, amountOut *big.Int, tokenIn [20]byte, amountIn *big.Int) (*Pair, error) {
	return e.createAsk(owner, FungibleAsset(tokenOut, amountOut), FungibleAsset(tokenIn, amountIn))
}

// CreateAskTokenToNative escrows amountOut of tokenOut against amountIn of the
// native unit.
func (e *Engine) CreateAskTokenToNative(owner, tokenOut [20]byte, amountOut, amountIn *big.Int) (*Pair, error) {
	return e.createAsk(owner, FungibleAsset(tokenOut, amountOut), NativeAsset(amountIn))
}

// CreateAskTokenToNFT escrows amountOut of tokenOut against the unique token
// tokenIDIn of collectionIn.
func (e *Engine) CreateAskTokenToNFT(owner, tokenOut [20]byte, amountOut *big.Int, collectionIn [20]byte, tokenIDIn *big.Int) (*Pair, error) {
	return e.createAsk(owner, FungibleAsset(tokenOut, amountOut), NonFungibleAsset(collectionIn, tokenIDIn))
}

// CreateAskNativeToToken escrows amountOut of the native unit against amountIn
// of tokenIn. The caller's attached payment must equal amountOut exactly;
// enforcing that equality is the transport boundary's job.
func (e *Engine) CreateAskNativeToToken(owner [20]byte, amountOut *big.Int, tokenIn [20]byte, amountIn *big.Int) (*Pair, error) {
	return e.createAsk(owner, NativeAsset(amountOut), FungibleAsset(tokenIn, amountIn))
}

// CreateAskNativeToNFT escrows amountOut of the native unit against the unique
// token tokenIDIn of collectionIn.
func (e *Engine) CreateAskNativeToNFT(owner [20]byte, amountOut *big.Int, collectionIn [20]byte, tokenIDIn *big.Int) (*Pair, error) {
	return e.createAsk(owner, NativeAsset(amountOut), NonFungibleAsset(collectionIn, tokenIDIn))
}

// CreateAskNFTToToken escrows the unique token tokenIDOut of collectionOut
// against amountIn of tokenIn.
func (e *Engine) CreateAskNFTToToken(owner, collectionOut [20]byte, tokenIDOut *big.Int, tokenIn [20]byte, amountIn *big.Int) (*Pair, error) {
	return e.createAsk(owner, NonFungibleAsset(collectionOut, tokenIDOut), FungibleAsset(tokenIn, amountIn))
}

// CreateAskNFTToNative escrows the unique token tokenIDOut of collectionOut
// against amountIn of the native unit.
func (e *Engine) CreateAskNFTToNative(owner, collectionOut [20]byte, tokenIDOut, amountIn *big.Int) (*Pair, error) {
	return e.createAsk(owner, NonFungibleAsset(collectionOut, tokenIDOut), NativeAsset(amountIn))
}

// CreateAskNFTToNFT escrows the unique token tokenIDOut of collectionOut
// against the unique token tokenIDIn of collectionIn.
func (e *Engine) CreateAskNFTToNFT(owner, collectionOut [20]byte, tokenIDOut *big.Int, collectionIn [20]byte, tokenIDIn *big.Int) (*Pair, error) {
	return e.createAsk(owner, NonFungibleAsset(collectionOut, tokenIDOut), NonFungibleAsset(collectionIn, tokenIDIn))
}

// createAsk is the single validate-and-escrow-and-register routine behind the
// public creation entry points. First validation failure wins; on any failure
// the registry and custody are left untouched.
func (e *Engine) createAsk(owner [20]byte, out, in AssetDescriptor) (*Pair, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkUint256(out.TokenID); err != nil {
		return nil, err
	}
	if err := checkUint256(in.TokenID); err != nil {
		return nil, err
	}
	if err := validateAmount(out.Amount); err != nil {
		return nil, err
	}
	if in.Kind.Divisible() {
		if err := validateAmount(in.Amount); err != nil {
			return nil, err
		}
	}
	if out.hasAddress() {
		if err := validateAddress(out.Address); err != nil {
			return nil, err
		}
	}
	if in.hasAddress() {
		if err := validateAddress(in.Address); err != nil {
			return nil, err
		}
	}
	if out.hasAddress() && in.hasAddress() && out.Address == in.Address {
		return nil, ErrIdenticalAddresses
	}
	if in.Kind == KindNonFungible {
		tokenOwner, err := e.nfts.OwnerOf(in.Address, in.TokenID)
		if err != nil {
			return nil, err
		}
		if tokenOwner == owner {
			return nil, ErrAlreadyOwner
		}
	}

	// Pull the out-leg into engine custody.
	switch out.Kind {
	case KindNative:
		if err := e.vault.Deposit(owner, out.Amount); err != nil {
			return nil, err
		}
	case KindFungible:
		if err := e.tokens.TransferFrom(out.Address, owner, e.vaultAddr, out.Amount); err != nil {
			return nil, err
		}
	case KindNonFungible:
		if err := e.nfts.TransferFrom(out.Address, owner, e.vaultAddr, out.TokenID); err != nil {
			return nil, err
		}
	}

	pair := &Pair{
		Owner:     owner,
		AssetOut:  out.Clone(),
		AssetIn:   in.Clone(),
		Price:     pairPrice(out, in, e.priceDecimal),
		CreatedAt: e.now(),
	}
	id, err := e.state.PairAppend(pair)
	if err != nil {
		// Registry append failed after escrow: hand the out-leg back before
		// surfacing the error.
		e.releaseOutLeg(pair, owner)
		return nil, err
	}
	pair.ID = id
	e.emit(NewAskCreatedEvent(pair))
	return pair.Clone(), nil
}

// releaseOutLeg returns the escrowed out-leg of the pair to the recipient.
func (e *Engine) releaseOutLeg(pair *Pair, to [20]byte) error {
	switch pair.AssetOut.Kind {
	case KindNative:
		return e.vault.Withdraw(to, pair.AssetOut.Amount)
	case KindFungible:
		return e.tokens.Transfer(pair.AssetOut.Address, e.vaultAddr, to, pair.AssetOut.Amount)
	case KindNonFungible:
		return e.nfts.Transfer(pair.AssetOut.Address, e.vaultAddr, to, pair.AssetOut.TokenID)
	}
	return nil
}

// reclaimOutLeg pulls a just-released out-leg back into escrow, undoing
// releaseOutLeg when a later step of the operation fails.
func (e *Engine) reclaimOutLeg(pair *Pair, from [20]byte) error {
	switch pair.AssetOut.Kind {
	case KindNative:
		return e.vault.Deposit(from, pair.AssetOut.Amount)
	case KindFungible:
		return e.tokens.Transfer(pair.AssetOut.Address, from, e.vaultAddr, pair.AssetOut.Amount)
	case KindNonFungible:
		return e.nfts.Transfer(pair.AssetOut.Address, from, e.vaultAddr, pair.AssetOut.TokenID)
	}
	return nil
}

// loadOpenPair fetches the pair and enforces the common bid/cancel
// preconditions: the id must exist and the pair must still be open.
func (e *Engine) loadOpenPair(id uint64) (*Pair, error) {
	if id >= e.state.PairCount() {
		return nil, ErrIDOutOfRange
	}
	pair, ok := e.state.PairGet(id)
	if !ok {
		return nil, ErrIDOutOfRange
	}
	sanitized, err := SanitizePair(pair)
	if err != nil {
		return nil, err
	}
	if sanitized.Finished {
		return nil, ErrAskFinished
	}
	return sanitized, nil
}
