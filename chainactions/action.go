package chainactions

import "fmt"

// Action is a pending on-chain operation. Its concrete type is one of
// the Action* structs in this file.
type Action interface {
	isAction()
	fmt.Stringer
}

type RedeemTicketAction struct{ Ticket RedeemableTicket }

func (RedeemTicketAction) isAction() {}
func (a RedeemTicketAction) String() string {
	return fmt.Sprintf("redeem %s", a.Ticket)
}

type OpenChannelAction struct {
	Destination Address
	Stake       Balance
}

func (OpenChannelAction) isAction() {}
func (a OpenChannelAction) String() string {
	return fmt.Sprintf("open channel to %s with %s", a.Destination, a.Stake)
}

type FundChannelAction struct {
	Channel Channel
	Amount  Balance
}

func (FundChannelAction) isAction() {}
func (a FundChannelAction) String() string {
	return fmt.Sprintf("fund %s with %s", a.Channel, a.Amount)
}

type CloseChannelAction struct {
	Channel   Channel
	Direction ChannelDirection
}

func (CloseChannelAction) isAction() {}
func (a CloseChannelAction) String() string {
	return fmt.Sprintf("close %s channel %s", a.Direction, a.Channel)
}

type WithdrawAction struct {
	Recipient Address
	Amount    Balance
}

func (WithdrawAction) isAction() {}
func (a WithdrawAction) String() string {
	return fmt.Sprintf("withdraw %s to %s", a.Amount, a.Recipient)
}

type WithdrawNativeAction struct {
	Recipient Address
	Amount    Balance
}

func (WithdrawNativeAction) isAction() {}
func (a WithdrawNativeAction) String() string {
	return fmt.Sprintf("withdraw native %s to %s", a.Amount, a.Recipient)
}

type AnnounceAction struct{ Data AnnouncementData }

func (AnnounceAction) isAction() {}
func (a AnnounceAction) String() string {
	return fmt.Sprintf("announce %s", a.Data.Multiaddress)
}

type RegisterSafeAction struct{ SafeAddress Address }

func (RegisterSafeAction) isAction() {}
func (a RegisterSafeAction) String() string {
	return fmt.Sprintf("register safe %s", a.SafeAddress)
}

// ChainEventType is an on-chain event observed by the indexer. Its
// concrete type is one of the ChainEvent* structs in this file.
type ChainEventType interface {
	isChainEvent()
	fmt.Stringer
}

type TicketRedeemedEvent struct {
	Channel Channel
	Index   uint64
}

func (TicketRedeemedEvent) isChainEvent() {}
func (e TicketRedeemedEvent) String() string {
	return fmt.Sprintf("ticket redeemed on %s", e.Channel)
}

type ChannelOpenedEvent struct{ Channel Channel }

func (ChannelOpenedEvent) isChainEvent() {}
func (e ChannelOpenedEvent) String() string { return fmt.Sprintf("%s opened", e.Channel) }

type ChannelBalanceIncreasedEvent struct {
	Channel Channel
	Diff    Balance
}

func (ChannelBalanceIncreasedEvent) isChainEvent() {}
func (e ChannelBalanceIncreasedEvent) String() string {
	return fmt.Sprintf("%s balance increased by %s", e.Channel, e.Diff)
}

type ChannelClosureInitiatedEvent struct{ Channel Channel }

func (ChannelClosureInitiatedEvent) isChainEvent() {}
func (e ChannelClosureInitiatedEvent) String() string {
	return fmt.Sprintf("%s closure initiated", e.Channel)
}

type ChannelClosedEvent struct{ Channel Channel }

func (ChannelClosedEvent) isChainEvent() {}
func (e ChannelClosedEvent) String() string { return fmt.Sprintf("%s closed", e.Channel) }

type AnnouncementEvent struct{ Multiaddresses []string }

func (AnnouncementEvent) isChainEvent() {}
func (e AnnouncementEvent) String() string {
	return fmt.Sprintf("announcement of %d multiaddresses", len(e.Multiaddresses))
}

func (e AnnouncementEvent) contains(addr string) bool {
	for _, m := range e.Multiaddresses {
		if m == addr {
			return true
		}
	}
	return false
}

type NodeSafeRegisteredEvent struct{ SafeAddress Address }

func (NodeSafeRegisteredEvent) isChainEvent() {}
func (e NodeSafeRegisteredEvent) String() string {
	return fmt.Sprintf("safe %s registered", e.SafeAddress)
}

// ActionConfirmation reports the successful outcome of an Action.
type ActionConfirmation struct {
	TxHash Hash
	Event  ChainEventType
	Action Action
}

func (c ActionConfirmation) String() string {
	return fmt.Sprintf("%s confirmed in tx %s", c.Action, c.TxHash)
}
