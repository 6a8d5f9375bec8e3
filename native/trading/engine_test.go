package trading

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"assetswap/core/events"
)

type mockState struct {
	pairs     []*Pair
	appendErr error
	markErr   error
}

func newMockState() *mockState {
	return &mockState{}
}

func (m *mockState) PairAppend(pair *Pair) (uint64, error) {
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	id := uint64(len(m.pairs))
	clone := pair.Clone()
	clone.ID = id
	m.pairs = append(m.pairs, clone)
	return id, nil
}

func (m *mockState) PairGet(id uint64) (*Pair, bool) {
	if id >= uint64(len(m.pairs)) {
		return nil, false
	}
	return m.pairs[id].Clone(), true
}

func (m *mockState) PairCount() uint64 {
	return uint64(len(m.pairs))
}

func (m *mockState) PairMarkFinished(id uint64) error {
	if m.markErr != nil {
		return m.markErr
	}
	if id >= uint64(len(m.pairs)) {
		return ErrIDOutOfRange
	}
	if m.pairs[id].Finished {
		return ErrAskFinished
	}
	m.pairs[id].Finished = true
	return nil
}

// mockCustody implements all three custody interfaces over in-memory maps so
// tests can assert exactly where every asset sits after an operation.
type mockCustody struct {
	native    map[[20]byte]*big.Int
	vaultAddr [20]byte
	tokens    map[[20]byte]map[[20]byte]*big.Int
	nftOwners map[[20]byte]map[string][20]byte

	depositErr         error
	withdrawErr        error
	tokenTransferErr   error
	tokenPullErr       error
	nftTransferErr     error
	nftPullErr         error
	withdrawFailAfter  int
	withdrawCallsTotal int
}

func newMockCustody(vaultAddr [20]byte) *mockCustody {
	return &mockCustody{
		native:            map[[20]byte]*big.Int{},
		vaultAddr:         vaultAddr,
		tokens:            map[[20]byte]map[[20]byte]*big.Int{},
		nftOwners:         map[[20]byte]map[string][20]byte{},
		withdrawFailAfter: -1,
	}
}

func (m *mockCustody) nativeBalance(addr [20]byte) *big.Int {
	if bal, ok := m.native[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (m *mockCustody) setNative(addr [20]byte, amount int64) {
	m.native[addr] = big.NewInt(amount)
}

func (m *mockCustody) Deposit(from [20]byte, amount *big.Int) error {
	if m.depositErr != nil {
		return m.depositErr
	}
	bal := m.nativeBalance(from)
	if bal.Cmp(amount) < 0 {
		return ErrTransferFailed
	}
	m.native[from] = bal.Sub(bal, amount)
	m.native[m.vaultAddr] = new(big.Int).Add(m.nativeBalance(m.vaultAddr), amount)
	return nil
}

func (m *mockCustody) Withdraw(to [20]byte, amount *big.Int) error {
	m.withdrawCallsTotal++
	if m.withdrawErr != nil {
		return m.withdrawErr
	}
	if m.withdrawFailAfter >= 0 && m.withdrawCallsTotal > m.withdrawFailAfter {
		return ErrTransferFailed
	}
	bal := m.nativeBalance(m.vaultAddr)
	if bal.Cmp(amount) < 0 {
		return ErrTransferFailed
	}
	m.native[m.vaultAddr] = bal.Sub(bal, amount)
	m.native[to] = new(big.Int).Add(m.nativeBalance(to), amount)
	return nil
}

func (m *mockCustody) tokenBalance(token, holder [20]byte) *big.Int {
	if holders, ok := m.tokens[token]; ok {
		if bal, ok := holders[holder]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return big.NewInt(0)
}

func (m *mockCustody) setToken(token, holder [20]byte, amount int64) {
	if m.tokens[token] == nil {
		m.tokens[token] = map[[20]byte]*big.Int{}
	}
	m.tokens[token][holder] = big.NewInt(amount)
}

func (m *mockCustody) moveToken(token, from, to [20]byte, amount *big.Int) error {
	bal := m.tokenBalance(token, from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if m.tokens[token] == nil {
		m.tokens[token] = map[[20]byte]*big.Int{}
	}
	m.tokens[token][from] = bal.Sub(bal, amount)
	m.tokens[token][to] = new(big.Int).Add(m.tokenBalance(token, to), amount)
	return nil
}

func (m *mockCustody) TransferFrom(token, from, to [20]byte, amount *big.Int) error {
	if m.tokenPullErr != nil {
		return m.tokenPullErr
	}
	return m.moveToken(token, from, to, amount)
}

func (m *mockCustody) Transfer(token, from, to [20]byte, amount *big.Int) error {
	if m.tokenTransferErr != nil {
		return m.tokenTransferErr
	}
	return m.moveToken(token, from, to, amount)
}

// nftCustody wraps the same mock so the per-kind failure knobs stay separate
// from the fungible ones.
type nftCustody struct {
	backing *mockCustody
}

func (n nftCustody) OwnerOf(collection [20]byte, tokenID *big.Int) ([20]byte, error) {
	tokens, ok := n.backing.nftOwners[collection]
	if !ok {
		return [20]byte{}, ErrInvalidTokenID
	}
	owner, ok := tokens[tokenID.String()]
	if !ok {
		return [20]byte{}, ErrInvalidTokenID
	}
	return owner, nil
}

func (n nftCustody) move(collection, from, to [20]byte, tokenID *big.Int) error {
	owner, err := n.OwnerOf(collection, tokenID)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrNotOwnerOrApproved
	}
	n.backing.nftOwners[collection][tokenID.String()] = to
	return nil
}

func (n nftCustody) TransferFrom(collection, from, to [20]byte, tokenID *big.Int) error {
	if n.backing.nftPullErr != nil {
		return n.backing.nftPullErr
	}
	return n.move(collection, from, to, tokenID)
}

func (n nftCustody) Transfer(collection, from, to [20]byte, tokenID *big.Int) error {
	if n.backing.nftTransferErr != nil {
		return n.backing.nftTransferErr
	}
	return n.move(collection, from, to, tokenID)
}

func (m *mockCustody) mintNFT(collection [20]byte, tokenID int64, owner [20]byte) {
	if m.nftOwners[collection] == nil {
		m.nftOwners[collection] = map[string][20]byte{}
	}
	m.nftOwners[collection][big.NewInt(tokenID).String()] = owner
}

func (m *mockCustody) nftOwner(collection [20]byte, tokenID int64) [20]byte {
	return m.nftOwners[collection][big.NewInt(tokenID).String()]
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func (c *capturingEmitter) attributes(eventType string) map[string]string {
	for _, evt := range c.events {
		if evt.EventType() != eventType {
			continue
		}
		wrapped, ok := evt.(tradingEvent)
		if !ok {
			continue
		}
		return wrapped.Event().Attributes
	}
	return nil
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var testVault = newTestAddress(0xEE)

func setupEngine(t *testing.T) (*Engine, *mockState, *mockCustody, *capturingEmitter) {
	t.Helper()
	state := newMockState()
	custody := newMockCustody(testVault)
	emitter := &capturingEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetCustody(testVault, custody, custody, nftCustody{backing: custody})
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return 1700000000 })
	return engine, state, custody, emitter
}

func TestCreateAskTokenToTokenEscrowsAndRegisters(t *testing.T) {
	engine, state, custody, emitter := setupEngine(t)
	owner := newTestAddress(0x01)
	tokenOut := newTestAddress(0xA1)
	tokenIn := newTestAddress(0xA2)
	custody.setToken(tokenOut, owner, 500)

	pair, err := engine.CreateAskTokenToToken(owner, tokenOut, big.NewInt(200), tokenIn, big.NewInt(100))
	if err != nil {
		t.Fatalf("create ask: %v", err)
	}
	if pair.ID != 0 {
		t.Fatalf("expected id 0, got %d", pair.ID)
	}
	if pair.Finished {
		t.Fatalf("new pair must be open")
	}
	if pair.CreatedAt != 1700000000 {
		t.Fatalf("unexpected creation timestamp %d", pair.CreatedAt)
	}
	if got := custody.tokenBalance(tokenOut, owner); got.Int64() != 300 {
		t.Fatalf("owner balance after escrow = %v, want 300", got)
	}
	if got := custody.tokenBalance(tokenOut, testVault); got.Int64() != 200 {
		t.Fatalf("vault balance after escrow = %v, want 200", got)
	}
	wantPrice := new(big.Int).Mul(big.NewInt(2), defaultPriceDecimal)
	if pair.Price.Cmp(wantPrice) != 0 {
		t.Fatalf("price = %v, want %v", pair.Price, wantPrice)
	}
	stored, ok := state.PairGet(0)
	if !ok {
		t.Fatalf("pair not stored")
	}
	if stored.AssetOut.Kind != KindFungible || stored.AssetIn.Kind != KindFungible {
		t.Fatalf("stored kinds wrong: %v/%v", stored.AssetOut.Kind, stored.AssetIn.Kind)
	}
	attrs := emitter.attributes(EventTypeAskCreated)
	if attrs == nil {
		t.Fatalf("expected ask created event")
	}
	if attrs["pairId"] != "0" || attrs["amount"] != "200" || attrs["assetKind"] != "fungible" {
		t.Fatalf("unexpected event attributes %v", attrs)
	}
}

func TestCreateAskValidationOrderAndNoSideEffects(t *testing.T) {
	engine, state, custody, emitter := setupEngine(t)
	owner := newTestAddress(0x01)
	tokenOut := newTestAddress(0xA1)
	tokenIn := newTestAddress(0xA2)
	custody.setToken(tokenOut, owner, 500)

	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "zero out amount",
			run: func() error {
				_, err := engine.CreateAskTokenToToken(owner, tokenOut, big.NewInt(0), tokenIn, big.NewInt(100))
				return err
			},
			want: ErrInvalidAmount,
		},
		{
			name: "zero in amount",
			run: func() error {
				_, err := engine.CreateAskTokenToToken(owner, tokenOut, big.NewInt(200), tokenIn, big.NewInt(0))
				return err
			},
			want: ErrInvalidAmount,
		},
		{
			name: "zero out address",
			run: func() error {
				_, err := engine.CreateAskTokenToToken(owner, [20]byte{}, big.NewInt(200), tokenIn, big.NewInt(100))
				return err
			},
			want: ErrZeroAddress,
		},
		{
			name: "zero in address",
			run: func() error {
				_, err := engine.CreateAskTokenToToken(owner, tokenOut, big.NewInt(200), [20]byte{}, big.NewInt(100))
				return err
			},
			want: ErrZeroAddress,
		},
		{
			name: "identical addresses",
			run: func() error {
				_, err := engine.CreateAskTokenToToken(owner, tokenOut, big.NewInt(200), tokenOut, big.NewInt(100))
				return err
			},
			want: ErrIdenticalAddresses,
		},
		{
			name: "amount beats address check",
			run: func() error {
				// Amount validation runs before any address validation.
				_, err := engine.CreateAskTokenToToken(owner, [20]byte{}, big.NewInt(0), [20]byte{}, big.NewInt(0))
				return err
			},
			want: ErrInvalidAmount,
		},
		{
			name: "token id overflow",
			run: func() error {
				huge := new(big.Int).Lsh(big.NewInt(1), 256)
				_, err := engine.CreateAskTokenToNFT(owner, tokenOut, big.NewInt(200), tokenIn, huge)
				return err
			},
			want: ErrValueOutOfRange,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
	if state.PairCount() != 0 {
		t.Fatalf("no pair should be registered after failed creations")
	}
	if got := custody.tokenBalance(tokenOut, owner); got.Int64() != 500 {
		t.Fatalf("owner balance changed on failed creation: %v", got)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("no events expected, got %d", len(emitter.events))
	}
}

func TestCreateAskNativeOutDepositsToVault(t *testing.T) {
	engine, _, custody, _ := setupEngine(t)
	owner := newTestAddress(0x02)
	tokenIn := newTestAddress(0xA2)
	custody.setNative(owner, 1000)

	pair, err := engine.CreateAskNativeToToken(owner, big.NewInt(400), tokenIn, big.NewInt(100))
	if err != nil {
		t.Fatalf("create ask: %v", err)
	}
	if got := custody.nativeBalance(owner); got.Int64() != 600 {
		t.Fatalf("owner native balance = %v, want 600", got)
	}
	if got := custody.nativeBalance(testVault); got.Int64() != 400 {
		t.Fatalf("vault native balance = %v, want 400", got)
	}
	if pair.AssetOut.Kind != KindNative {
		t.Fatalf("out kind = %v, want native", pair.AssetOut.Kind)
	}
}

func TestCreateAskNFTOutEscrowsToken(t *testing.T) {
	engine, _, custody, emitter := setupEngine(t)
	owner := newTestAddress(0x03)
	collection := newTestAddress(0xB1)
	tokenIn := newTestAddress(0xA2)
	custody.mintNFT(collection, 7, owner)

	pair, err := engine.CreateAskNFTToToken(owner, collection, big.NewInt(7), tokenIn, big.NewInt(100))
	if err != nil {
		t.Fatalf("create ask: %v", err)
	}
	if got := custody.nftOwner(collection, 7); got != testVault {
		t.Fatalf("token 7 should be in escrow, owner %x", got)
	}
	if pair.Price.Sign() != 0 {
		t.Fatalf("indivisible leg must yield zero price, got %v", pair.Price)
	}
	attrs := emitter.attributes(EventTypeAskCreated)
	if attrs["tokenId"] != "7" {
		t.Fatalf("event should carry the escrowed token id, got %v", attrs)
	}
	if _, ok := attrs["amount"]; ok {
		t.Fatalf("nft out-leg event must not carry an amount")
	}
}

func TestCreateAskRejectsSelfFulfilment(t *testing.T) {
	engine, state, custody, _ := setupEngine(t)
	owner := newTestAddress(0x04)
	tokenOut := newTestAddress(0xA1)
	collection := newTestAddress(0xB1)
	custody.setToken(tokenOut, owner, 500)
	custody.mintNFT(collection, 9, owner)

	_, err := engine.CreateAskTokenToNFT(owner, tokenOut, big.NewInt(100), collection, big.NewInt(9))
	if !errors.Is(err, ErrAlreadyOwner) {
		t.Fatalf("got %v, want ErrAlreadyOwner", err)
	}
	if state.PairCount() != 0 {
		t.Fatalf("rejected ask must not be registered")
	}
	if got := custody.tokenBalance(tokenOut, owner); got.Int64() != 500 {
		t.Fatalf("rejected ask must not move funds, balance %v", got)
	}
}

func TestCreateAskUnknownRequestedNFTFails(t *testing.T) {
	engine, _, custody, _ := setupEngine(t)
	owner := newTestAddress(0x04)
	tokenOut := newTestAddress(0xA1)
	collection := newTestAddress(0xB1)
	custody.setToken(tokenOut, owner, 500)

	_, err := engine.CreateAskTokenToNFT(owner, tokenOut, big.NewInt(100), collection, big.NewInt(9))
	if !errors.Is(err, ErrInvalidTokenID) {
		t.Fatalf("got %v, want ErrInvalidTokenID", err)
	}
}

func TestCreateAskReleasesEscrowWhenAppendFails(t *testing.T) {
	engine, state, custody, emitter := setupEngine(t)
	owner := newTestAddress(0x05)
	tokenOut := newTestAddress(0xA1)
	tokenIn := newTestAddress(0xA2)
	custody.setToken(tokenOut, owner, 500)
	state.appendErr = errors.New("registry write failed")

	_, err := engine.CreateAskTokenToToken(owner, tokenOut, big.NewInt(200), tokenIn, big.NewInt(100))
	if err == nil || !errors.Is(err, state.appendErr) {
		t.Fatalf("expected append error, got %v", err)
	}
	if got := custody.tokenBalance(tokenOut, owner); got.Int64() != 500 {
		t.Fatalf("escrow must be released on append failure, owner balance %v", got)
	}
	if got := custody.tokenBalance(tokenOut, testVault); got.Sign() != 0 {
		t.Fatalf("vault should hold nothing, got %v", got)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("no event expected on failed creation")
	}
}

func TestCreateAskInsufficientBalanceFails(t *testing.T) {
	engine, state, custody, _ := setupEngine(t)
	owner := newTestAddress(0x06)
	tokenOut := newTestAddress(0xA1)
	tokenIn := newTestAddress(0xA2)
	custody.setToken(tokenOut, owner, 50)

	_, err := engine.CreateAskTokenToToken(owner, tokenOut, big.NewInt(200), tokenIn, big.NewInt(100))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if state.PairCount() != 0 {
		t.Fatalf("failed escrow must not register a pair")
	}
}

func TestCreateAskDenseSequentialIDs(t *testing.T) {
	engine, _, custody, _ := setupEngine(t)
	owner := newTestAddress(0x07)
	tokenOut := newTestAddress(0xA1)
	tokenIn := newTestAddress(0xA2)
	custody.setToken(tokenOut, owner, 1000)

	for want := uint64(0); want < 3; want++ {
		pair, err := engine.CreateAskTokenToToken(owner, tokenOut, big.NewInt(100), tokenIn, big.NewInt(50))
		if err != nil {
			t.Fatalf("create ask %d: %v", want, err)
		}
		if pair.ID != want {
			t.Fatalf("id = %d, want %d", pair.ID, want)
		}
	}
	count, err := engine.PairCount()
	if err != nil {
		t.Fatalf("pair count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestEngineRequiresWiring(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.CreateAskTokenToToken(newTestAddress(0x01), newTestAddress(0xA1), big.NewInt(1), newTestAddress(0xA2), big.NewInt(1)); !errors.Is(err, errNilState) {
		t.Fatalf("unwired engine must refuse work, got %v", err)
	}
	engine.SetState(newMockState())
	if _, err := engine.BidToken(0, newTestAddress(0x01), big.NewInt(1)); !errors.Is(err, errNilCustody) {
		t.Fatalf("missing custody must refuse work, got %v", err)
	}
}

func TestReturnedPairIsDetachedCopy(t *testing.T) {
	engine, state, custody, _ := setupEngine(t)
	owner := newTestAddress(0x08)
	tokenOut := newTestAddress(0xA1)
	tokenIn := newTestAddress(0xA2)
	custody.setToken(tokenOut, owner, 500)

	pair, err := engine.CreateAskTokenToToken(owner, tokenOut, big.NewInt(200), tokenIn, big.NewInt(100))
	if err != nil {
		t.Fatalf("create ask: %v", err)
	}
	pair.AssetOut.Amount.SetInt64(999999)
	pair.Finished = true

	stored, ok := state.PairGet(0)
	if !ok {
		t.Fatalf("pair not stored")
	}
	if stored.AssetOut.Amount.Int64() != 200 || stored.Finished {
		t.Fatalf("mutating the returned pair leaked into storage: %+v", stored)
	}
}
