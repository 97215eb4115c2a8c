package chainactions

import "context"

// TransactionExecutor submits the on-chain transaction for one Action
// variant and returns the hash of the submitted transaction. It does
// not wait for confirmation; that is the ActionQueue's job, driven by
// an ActionState registry fed by an external indexer.
type TransactionExecutor interface {
	RedeemTicket(ctx context.Context, ticket RedeemableTicket) (Hash, error)
	FundChannel(ctx context.Context, channel Channel, amount Balance) (Hash, error)
	InitiateOutgoingChannelClosure(ctx context.Context, channel Channel) (Hash, error)
	FinalizeOutgoingChannelClosure(ctx context.Context, channel Channel) (Hash, error)
	CloseIncomingChannel(ctx context.Context, channel Channel) (Hash, error)
	Withdraw(ctx context.Context, recipient Address, amount Balance) (Hash, error)
	Announce(ctx context.Context, data AnnouncementData) (Hash, error)
	RegisterSafe(ctx context.Context, safeAddress Address) (Hash, error)
}

// TicketStateUpdater persists ticket redemption state. The queue calls
// it to roll a ticket back to TicketUntouched when its redemption
// transaction fails to confirm, so a later attempt can retry it.
type TicketStateUpdater interface {
	SetTicketStatus(ctx context.Context, ticket RedeemableTicket, status AcknowledgedTicketStatus) error
}

// MetricsRecorder observes action outcomes. Kept as an interface here,
// rather than importing a concrete metrics package, so this package
// has no dependency on how (or whether) results are exported.
type MetricsRecorder interface {
	RecordAction(actionKind, result string)
}

// noopMetrics discards every observation; it is the default recorder
// when a queue is built without one.
type noopMetrics struct{}

func (noopMetrics) RecordAction(string, string) {}
