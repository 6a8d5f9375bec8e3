package state

import (
	"errors"
	"fmt"
	"math/big"

	"assetswap/native/nft"
	"assetswap/native/token"
	"assetswap/native/trading"
)

// Custody bundles the per-kind transfer primitives the trading engine needs,
// backed by the state manager's accounts and the token/nft ledgers. It
// translates ledger failures into the engine's canonical custody errors.
type Custody struct {
	manager   *Manager
	tokens    *token.Ledger
	nfts      *nft.Registry
	vaultAddr [20]byte
}

// NewCustody wires the custody adapters for the engine holding escrow at
// vaultAddr.
func NewCustody(manager *Manager, tokens *token.Ledger, nfts *nft.Registry, vaultAddr [20]byte) *Custody {
	return &Custody{manager: manager, tokens: tokens, nfts: nfts, vaultAddr: vaultAddr}
}

// Deposit moves native value from the caller's account into the vault.
func (c *Custody) Deposit(from [20]byte, amount *big.Int) error {
	if err := c.manager.Transfer(from, c.vaultAddr, amount); err != nil {
		if errors.Is(err, trading.ErrTransferFailed) {
			return trading.ErrTransferFailed
		}
		return fmt.Errorf("%w: %v", trading.ErrTransferFailed, err)
	}
	return nil
}

// Withdraw moves native value from the vault to the recipient.
func (c *Custody) Withdraw(to [20]byte, amount *big.Int) error {
	if err := c.manager.Transfer(c.vaultAddr, to, amount); err != nil {
		if errors.Is(err, trading.ErrTransferFailed) {
			return trading.ErrTransferFailed
		}
		return fmt.Errorf("%w: %v", trading.ErrTransferFailed, err)
	}
	return nil
}

// TransferFrom pulls fungible tokens on the vault's authority, consuming the
// holder's allowance.
func (c *Custody) TransferFrom(tok, from, to [20]byte, amount *big.Int) error {
	return mapTokenErr(c.tokens.TransferFrom(tok, c.vaultAddr, from, to, amount))
}

// Transfer moves fungible tokens without an allowance check. Used for escrow
// releases and rollbacks.
func (c *Custody) Transfer(tok, from, to [20]byte, amount *big.Int) error {
	return mapTokenErr(c.tokens.Transfer(tok, from, to, amount))
}

func mapTokenErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrInsufficientAllowance):
		return trading.ErrInsufficientAllowance
	case errors.Is(err, token.ErrInsufficientBalance):
		return trading.ErrInsufficientBalance
	default:
		return err
	}
}

// NFTCustody exposes the unique-token primitives as a separate adapter so the
// engine receives distinct interfaces per asset kind.
type NFTCustody struct {
	registry  *nft.Registry
	vaultAddr [20]byte
}

// NewNFTCustody wires the non-fungible adapter for the engine holding escrow
// at vaultAddr.
func NewNFTCustody(registry *nft.Registry, vaultAddr [20]byte) *NFTCustody {
	return &NFTCustody{registry: registry, vaultAddr: vaultAddr}
}

// OwnerOf reports the current owner of the token.
func (c *NFTCustody) OwnerOf(collection [20]byte, tokenID *big.Int) ([20]byte, error) {
	owner, err := c.registry.OwnerOf(collection, tokenID)
	return owner, mapNFTErr(err)
}

// TransferFrom moves the token on the vault's authority, requiring the
// holder's approval.
func (c *NFTCustody) TransferFrom(collection, from, to [20]byte, tokenID *big.Int) error {
	return mapNFTErr(c.registry.TransferFrom(collection, c.vaultAddr, from, to, tokenID))
}

// Transfer moves the token without an approval check. Used for escrow
// releases and rollbacks.
func (c *NFTCustody) Transfer(collection, from, to [20]byte, tokenID *big.Int) error {
	return mapNFTErr(c.registry.Transfer(collection, from, to, tokenID))
}

func mapNFTErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, nft.ErrInvalidTokenID):
		return trading.ErrInvalidTokenID
	case errors.Is(err, nft.ErrNotOwnerOrApproved):
		return trading.ErrNotOwnerOrApproved
	default:
		return err
	}
}
