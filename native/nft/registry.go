package nft

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrInvalidTokenID     = errors.New("nft: invalid token id")
	ErrNotOwnerOrApproved = errors.New("nft: caller is not token owner or approved")
)

// Storage abstracts the subset of state manager functionality required by the
// registry.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Registry tracks ownership and approvals for any number of non-fungible
// collections, each identified by its address. Token ids are unsigned 256-bit
// values; a token exists once minted and is never destroyed here.
type Registry struct {
	store Storage
}

// NewRegistry constructs a registry bound to the provided storage backend.
func NewRegistry(store Storage) *Registry {
	return &Registry{store: store}
}

// OwnerOf returns the current owner of the token. A token that was never
// minted yields ErrInvalidTokenID.
func (r *Registry) OwnerOf(collection [20]byte, tokenID *big.Int) ([20]byte, error) {
	var owner [20]byte
	if tokenID == nil || tokenID.Sign() < 0 {
		return owner, ErrInvalidTokenID
	}
	var stored []byte
	ok, err := r.store.KVGet(ownerKey(collection, tokenID), &stored)
	if err != nil {
		return owner, err
	}
	if !ok {
		return owner, ErrInvalidTokenID
	}
	if len(stored) != len(owner) {
		return owner, fmt.Errorf("nft: corrupt owner record for token %s", tokenID)
	}
	copy(owner[:], stored)
	return owner, nil
}

// Mint assigns a fresh token to the holder. Minting an existing token fails.
func (r *Registry) Mint(collection, holder [20]byte, tokenID *big.Int) error {
	if tokenID == nil || tokenID.Sign() < 0 {
		return ErrInvalidTokenID
	}
	if _, err := r.OwnerOf(collection, tokenID); err == nil {
		return fmt.Errorf("nft: token %s already minted", tokenID)
	} else if !errors.Is(err, ErrInvalidTokenID) {
		return err
	}
	return r.store.KVPut(ownerKey(collection, tokenID), holder[:])
}

// Approve grants spender the right to move the single token. Only the current
// owner may grant it.
func (r *Registry) Approve(collection, caller, spender [20]byte, tokenID *big.Int) error {
	owner, err := r.OwnerOf(collection, tokenID)
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrNotOwnerOrApproved
	}
	return r.store.KVPut(approvalKey(collection, tokenID), spender[:])
}

// SetApprovalForAll grants or revokes operator rights over every token the
// owner holds in the collection.
func (r *Registry) SetApprovalForAll(collection, owner, operator [20]byte, approved bool) error {
	key := operatorKey(collection, owner, operator)
	if !approved {
		return r.store.KVDelete(key)
	}
	return r.store.KVPut(key, true)
}

func (r *Registry) approvedFor(collection [20]byte, tokenID *big.Int, owner, caller [20]byte) (bool, error) {
	if caller == owner {
		return true, nil
	}
	var spender []byte
	ok, err := r.store.KVGet(approvalKey(collection, tokenID), &spender)
	if err != nil {
		return false, err
	}
	if ok && len(spender) == 20 {
		var approved [20]byte
		copy(approved[:], spender)
		if approved == caller {
			return true, nil
		}
	}
	var operator bool
	ok, err = r.store.KVGet(operatorKey(collection, owner, caller), &operator)
	if err != nil {
		return false, err
	}
	return ok && operator, nil
}

// TransferFrom moves the token from `from` to `to` on behalf of caller, who
// must be the owner, the approved spender, or an approved operator. The
// per-token approval is cleared on transfer.
func (r *Registry) TransferFrom(collection, caller, from, to [20]byte, tokenID *big.Int) error {
	owner, err := r.OwnerOf(collection, tokenID)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrNotOwnerOrApproved
	}
	allowed, err := r.approvedFor(collection, tokenID, owner, caller)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotOwnerOrApproved
	}
	return r.transfer(collection, from, to, tokenID)
}

// Transfer moves the token without an approval check.
func (r *Registry) Transfer(collection, from, to [20]byte, tokenID *big.Int) error {
	owner, err := r.OwnerOf(collection, tokenID)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrNotOwnerOrApproved
	}
	return r.transfer(collection, from, to, tokenID)
}

func (r *Registry) transfer(collection, from, to [20]byte, tokenID *big.Int) error {
	if err := r.store.KVDelete(approvalKey(collection, tokenID)); err != nil {
		return err
	}
	return r.store.KVPut(ownerKey(collection, tokenID), to[:])
}
