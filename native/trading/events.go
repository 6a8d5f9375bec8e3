package trading

import (
	"encoding/hex"
	"strconv"

	"assetswap/core/types"
)

const (
	EventTypeAskCreated  = "trading.ask.created"
	EventTypeAskRemoved  = "trading.ask.removed"
	EventTypeBidExecuted = "trading.bid.executed"
)

// NewAskCreatedEvent returns the canonical event payload for a newly escrowed
// ask.
func NewAskCreatedEvent(p *Pair) *types.Event {
	return newAskEvent(EventTypeAskCreated, p.Owner, p)
}

// NewAskRemovedEvent returns the canonical event payload for a cancelled ask.
func NewAskRemovedEvent(p *Pair) *types.Event {
	return newAskEvent(EventTypeAskRemoved, p.Owner, p)
}

// NewBidExecutedEvent returns the canonical event payload emitted when a bid
// atomically fulfils an ask.
func NewBidExecutedEvent(bidder [20]byte, p *Pair) *types.Event {
	evt := newAskEvent(EventTypeBidExecuted, bidder, p)
	// The fulfilment payload names the counterparty and drops the kind tag.
	if actor, ok := evt.Attribute("actor"); ok {
		evt.Attributes["bidder"] = actor
	}
	delete(evt.Attributes, "actor")
	delete(evt.Attributes, "assetKind")
	return evt
}

// newAskEvent renders the shared payload: actor, pair id, out-leg address or
// zero, and the out-leg amount (divisible) or token id (indivisible).
func newAskEvent(eventType string, actor [20]byte, p *Pair) *types.Event {
	attrs := make(map[string]string)
	if p == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["actor"] = "0x" + hex.EncodeToString(actor[:])
	attrs["pairId"] = strconv.FormatUint(p.ID, 10)
	attrs["asset"] = "0x" + hex.EncodeToString(p.AssetOut.Address[:])
	attrs["assetKind"] = p.AssetOut.Kind.String()
	if p.AssetOut.Kind == KindNonFungible {
		attrs["tokenId"] = cloneBigInt(p.AssetOut.TokenID).String()
	} else {
		attrs["amount"] = cloneBigInt(p.AssetOut.Amount).String()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
