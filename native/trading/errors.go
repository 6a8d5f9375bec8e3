package trading

import "errors"

// Business failures surfaced by the trading engine. Every failure aborts the
// whole operation with zero state change; callers match with errors.Is.
var (
	ErrInvalidAmount      = errors.New("trading: invalid amount")
	ErrZeroAddress        = errors.New("trading: zero address")
	ErrIdenticalAddresses = errors.New("trading: identical addresses")
	ErrAlreadyOwner       = errors.New("trading: caller already owns token")
	ErrIDOutOfRange       = errors.New("trading: pair id out of range")
	ErrAskFinished        = errors.New("trading: ask finished")
	ErrNotAskOwner        = errors.New("trading: not ask owner")
	ErrInvalidPairID      = errors.New("trading: invalid pair id for bid kind")
	ErrExcessiveAmount    = errors.New("trading: amount exceeds ask")
	ErrIncorrectAmount    = errors.New("trading: amount must match ask exactly")
	ErrIncorrectTokenID   = errors.New("trading: token id must match ask exactly")
)

// Custody failures propagated verbatim from the custody adapters.
var (
	ErrTransferFailed        = errors.New("trading: native transfer failed")
	ErrInsufficientAllowance = errors.New("trading: insufficient allowance")
	ErrInsufficientBalance   = errors.New("trading: insufficient balance")
	ErrInvalidTokenID        = errors.New("trading: invalid token id")
	ErrNotOwnerOrApproved    = errors.New("trading: caller is not token owner or approved")
)

// ErrValueOutOfRange rejects numeric input outside the representable unsigned
// 256-bit range before business validation runs.
var ErrValueOutOfRange = errors.New("trading: value out of range")
