// Package chainactions implements the on-chain action execution
// queue: a bounded producer/consumer pipeline that turns high-level
// Actions into transactions via a TransactionExecutor, then waits for
// the indexer to confirm them through the ActionState registry.
package chainactions

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// Address is a 20-byte on-chain account identifier.
type Address [20]byte

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// Hash is a 32-byte transaction or channel identifier.
type Hash [32]byte

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// Currency distinguishes the HOPR token balance from the chain's
// native gas currency; Withdraw and WithdrawNative both route through
// the same executor method but carry a different Currency.
type Currency uint8

const (
	CurrencyHOPR Currency = iota
	CurrencyNative
)

func (c Currency) String() string {
	if c == CurrencyNative {
		return "native"
	}
	return "hopr"
}

// Balance is a typed amount denominated in one Currency.
type Balance struct {
	Amount   *big.Int
	Currency Currency
}

func (b Balance) String() string {
	if b.Amount == nil {
		return "0 " + b.Currency.String()
	}
	return fmt.Sprintf("%s %s", b.Amount.String(), b.Currency)
}

// Equal reports whether two balances carry the same currency and
// amount.
func (b Balance) Equal(other Balance) bool {
	if b.Currency != other.Currency {
		return false
	}
	if b.Amount == nil || other.Amount == nil {
		return b.Amount == other.Amount
	}
	return b.Amount.Cmp(other.Amount) == 0
}

// ChannelDirection is the orientation of a channel relative to this
// node.
type ChannelDirection uint8

const (
	Incoming ChannelDirection = iota
	Outgoing
)

func (d ChannelDirection) String() string {
	if d == Outgoing {
		return "outgoing"
	}
	return "incoming"
}

// ChannelStatusKind is the coarse state of a payment channel.
type ChannelStatusKind uint8

const (
	ChannelOpen ChannelStatusKind = iota
	ChannelPendingToClose
	ChannelClosed
)

// ChannelStatus is the status of a channel. ClosureTime is only
// meaningful when Kind is ChannelPendingToClose; its interpretation is
// opaque to this package.
type ChannelStatus struct {
	Kind        ChannelStatusKind
	ClosureTime time.Time
}

// Channel is a payment channel between Source and Destination.
type Channel struct {
	ID          Hash
	Source      Address
	Destination Address
	Status      ChannelStatus
}

func (c Channel) String() string {
	return fmt.Sprintf("channel %s (%s -> %s)", c.ID, c.Source, c.Destination)
}

// AnnouncementData is the payload of an on-chain node announcement.
type AnnouncementData struct {
	Multiaddress string
}

// AcknowledgedTicketStatus tracks a ticket's redemption lifecycle.
type AcknowledgedTicketStatus uint8

const (
	TicketUntouched AcknowledgedTicketStatus = iota
	TicketBeingRedeemed
	TicketRedeemed
)

// Ticket is a single payment ticket issued on a channel.
type Ticket struct {
	ChannelID Hash
	Index     uint64
	Amount    Balance
}

// RedeemableTicket is a Ticket together with whatever proof its
// redemption requires; this package treats that proof as opaque.
type RedeemableTicket struct {
	Ticket Ticket
}

func (t RedeemableTicket) String() string {
	return fmt.Sprintf("ticket #%d on %s", t.Ticket.Index, t.Ticket.ChannelID)
}
