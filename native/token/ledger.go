package token

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
)

// Storage abstracts the subset of state manager functionality required by the
// ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger tracks balances and owner-to-spender allowances for any number of
// fungible tokens, each identified by its address. Transfers are strictly
// all-or-nothing: a failed check leaves every balance untouched.
type Ledger struct {
	store Storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) balance(token, holder [20]byte) (*big.Int, error) {
	var stored string
	ok, err := l.store.KVGet(balanceKey(token, holder), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	value, valid := new(big.Int).SetString(stored, 10)
	if !valid {
		return nil, fmt.Errorf("token: corrupt balance record for %x", holder)
	}
	return value, nil
}

func (l *Ledger) setBalance(token, holder [20]byte, value *big.Int) error {
	return l.store.KVPut(balanceKey(token, holder), value.String())
}

// BalanceOf returns the holder's balance of the given token.
func (l *Ledger) BalanceOf(token, holder [20]byte) (*big.Int, error) {
	return l.balance(token, holder)
}

// Mint credits amount to the holder. Used by genesis allocation and tests.
func (l *Ledger) Mint(token, holder [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("token: mint amount must be non-negative")
	}
	current, err := l.balance(token, holder)
	if err != nil {
		return err
	}
	return l.setBalance(token, holder, new(big.Int).Add(current, amount))
}

// Approve grants spender the right to move up to amount of the owner's
// balance, replacing any previous allowance.
func (l *Ledger) Approve(token, owner, spender [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("token: allowance must be non-negative")
	}
	return l.store.KVPut(allowanceKey(token, owner, spender), amount.String())
}

// Allowance returns what spender may still move from owner.
func (l *Ledger) Allowance(token, owner, spender [20]byte) (*big.Int, error) {
	var stored string
	ok, err := l.store.KVGet(allowanceKey(token, owner, spender), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	value, valid := new(big.Int).SetString(stored, 10)
	if !valid {
		return nil, fmt.Errorf("token: corrupt allowance record for %x", owner)
	}
	return value, nil
}

// TransferFrom moves amount from `from` to `to`, spending the allowance that
// `from` granted to `spender`. When spender and from are the same address no
// allowance is consumed.
func (l *Ledger) TransferFrom(token, spender, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("token: transfer amount must be non-negative")
	}
	if spender != from {
		allowance, err := l.Allowance(token, from, spender)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		if err := l.transfer(token, from, to, amount); err != nil {
			return err
		}
		return l.store.KVPut(allowanceKey(token, from, spender), new(big.Int).Sub(allowance, amount).String())
	}
	return l.transfer(token, from, to, amount)
}

// Transfer moves amount from `from` to `to` without touching allowances.
func (l *Ledger) Transfer(token, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("token: transfer amount must be non-negative")
	}
	return l.transfer(token, from, to, amount)
}

func (l *Ledger) transfer(token, from, to [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromBalance, err := l.balance(token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	// Self-transfers net to zero; writing both sides would replay the stale
	// read and inflate the balance.
	if from == to {
		return nil
	}
	toBalance, err := l.balance(token, to)
	if err != nil {
		return err
	}
	if err := l.setBalance(token, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.setBalance(token, to, new(big.Int).Add(toBalance, amount))
}
