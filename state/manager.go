package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"assetswap/core/types"
	"assetswap/native/trading"
	"assetswap/storage"
)

// Manager persists accounts and the pair registry in a key-value store and
// exposes the subsets of functionality the engine and the ledgers require.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager constructs a state manager over the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// --- generic KV helpers (JSON-encoded), shared with the token/nft ledgers ---

// KVGet decodes the value stored under key into out, reporting presence.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVPut encodes value as JSON and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	return m.db.Delete(key)
}

// --- accounts ---

// GetAccount loads the account for addr, returning an empty account when the
// address has never been seen.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := types.NewAccount()
	var stored storedAccount
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return account, nil
	}
	balance, valid := new(big.Int).SetString(stored.Balance, 10)
	if !valid {
		return nil, fmt.Errorf("state: corrupt balance for %x", addr)
	}
	account.Nonce = stored.Nonce
	account.Balance = balance
	return account, nil
}

// PutAccount stores the account for addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		account = types.NewAccount()
	}
	balance := big.NewInt(0)
	if account.Balance != nil {
		balance = account.Balance
	}
	return m.KVPut(accountKey(addr), storedAccount{Nonce: account.Nonce, Balance: balance.String()})
}

type storedAccount struct {
	Nonce   uint64 `json:"nonce"`
	Balance string `json:"balance"`
}

// --- pair registry ---

type storedAsset struct {
	Kind    uint8    `json:"kind"`
	Address [20]byte `json:"address"`
	Amount  string   `json:"amount"`
	TokenID string   `json:"tokenId,omitempty"`
}

type storedPair struct {
	ID        uint64      `json:"id"`
	Owner     [20]byte    `json:"owner"`
	AssetOut  storedAsset `json:"assetOut"`
	AssetIn   storedAsset `json:"assetIn"`
	Price     string      `json:"price"`
	Finished  bool        `json:"finished"`
	CreatedAt int64       `json:"createdAt"`
}

func encodeAsset(a trading.AssetDescriptor) storedAsset {
	stored := storedAsset{Kind: uint8(a.Kind), Address: a.Address, Amount: "0"}
	if a.Amount != nil {
		stored.Amount = a.Amount.String()
	}
	if a.TokenID != nil {
		stored.TokenID = a.TokenID.String()
	}
	return stored
}

func decodeAsset(s storedAsset) (trading.AssetDescriptor, error) {
	amount, valid := new(big.Int).SetString(s.Amount, 10)
	if !valid {
		return trading.AssetDescriptor{}, fmt.Errorf("state: corrupt asset amount %q", s.Amount)
	}
	asset := trading.AssetDescriptor{Kind: trading.AssetKind(s.Kind), Address: s.Address, Amount: amount}
	if s.TokenID != "" {
		tokenID, ok := new(big.Int).SetString(s.TokenID, 10)
		if !ok {
			return trading.AssetDescriptor{}, fmt.Errorf("state: corrupt token id %q", s.TokenID)
		}
		asset.TokenID = tokenID
	}
	return asset, nil
}

// PairAppend persists the pair under the next dense identifier and returns it.
func (m *Manager) PairAppend(pair *trading.Pair) (uint64, error) {
	if pair == nil {
		return 0, fmt.Errorf("state: nil pair")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.pairCountLocked()
	clone := pair.Clone()
	clone.ID = id
	if err := m.putPairLocked(clone); err != nil {
		return 0, err
	}
	if err := m.KVPut(pairCountKey, id+1); err != nil {
		return 0, err
	}
	return id, nil
}

// PairGet loads the pair stored under id.
func (m *Manager) PairGet(id uint64) (*trading.Pair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pair, err := m.getPairLocked(id)
	if err != nil {
		return nil, false
	}
	return pair, pair != nil
}

// PairCount returns the number of pairs ever appended.
func (m *Manager) PairCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairCountLocked()
}

// PairMarkFinished flips the terminal flag on the stored pair. The transition
// is monotonic: marking an already finished pair is rejected.
func (m *Manager) PairMarkFinished(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pair, err := m.getPairLocked(id)
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("state: pair %d not found", id)
	}
	if pair.Finished {
		return fmt.Errorf("state: pair %d already finished", id)
	}
	pair.Finished = true
	return m.putPairLocked(pair)
}

func (m *Manager) pairCountLocked() uint64 {
	var count uint64
	ok, err := m.KVGet(pairCountKey, &count)
	if err != nil || !ok {
		return 0
	}
	return count
}

func (m *Manager) putPairLocked(pair *trading.Pair) error {
	price := "0"
	if pair.Price != nil {
		price = pair.Price.String()
	}
	stored := storedPair{
		ID:        pair.ID,
		Owner:     pair.Owner,
		AssetOut:  encodeAsset(pair.AssetOut),
		AssetIn:   encodeAsset(pair.AssetIn),
		Price:     price,
		Finished:  pair.Finished,
		CreatedAt: pair.CreatedAt,
	}
	return m.KVPut(pairKey(pair.ID), stored)
}

func (m *Manager) getPairLocked(id uint64) (*trading.Pair, error) {
	var stored storedPair
	ok, err := m.KVGet(pairKey(id), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	assetOut, err := decodeAsset(stored.AssetOut)
	if err != nil {
		return nil, err
	}
	assetIn, err := decodeAsset(stored.AssetIn)
	if err != nil {
		return nil, err
	}
	price, valid := new(big.Int).SetString(stored.Price, 10)
	if !valid {
		return nil, fmt.Errorf("state: corrupt price %q", stored.Price)
	}
	return &trading.Pair{
		ID:        stored.ID,
		Owner:     stored.Owner,
		AssetOut:  assetOut,
		AssetIn:   assetIn,
		Price:     price,
		Finished:  stored.Finished,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// Transfer moves native value between two accounts as one step.
func (m *Manager) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromAcc, err := m.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return trading.ErrTransferFailed
	}
	// Self-transfers net to zero; writing both sides would replay the stale
	// read and inflate the balance.
	if from == to {
		return nil
	}
	toAcc, err := m.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := m.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return m.PutAccount(to, toAcc)
}

// Credit adds native value to an account. Used by genesis allocation and
// tests.
func (m *Manager) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: negative credit amount")
	}
	account, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return m.PutAccount(addr, account)
}
