package chainactions

import (
	"context"

	"github.com/google/uuid"
)

// InMemoryExecutor is a TransactionExecutor that never touches a real
// chain: every call immediately "succeeds" with a freshly generated
// Hash. It exists for demos and tests where a real chain client isn't
// available but something still has to stand in for one.
type InMemoryExecutor struct{}

func (InMemoryExecutor) newHash() Hash {
	id := uuid.New()
	var h Hash
	copy(h[:], id[:])
	return h
}

func (e InMemoryExecutor) RedeemTicket(ctx context.Context, ticket RedeemableTicket) (Hash, error) {
	return e.newHash(), nil
}

func (e InMemoryExecutor) FundChannel(ctx context.Context, channel Channel, amount Balance) (Hash, error) {
	return e.newHash(), nil
}

func (e InMemoryExecutor) InitiateOutgoingChannelClosure(ctx context.Context, channel Channel) (Hash, error) {
	return e.newHash(), nil
}

func (e InMemoryExecutor) FinalizeOutgoingChannelClosure(ctx context.Context, channel Channel) (Hash, error) {
	return e.newHash(), nil
}

func (e InMemoryExecutor) CloseIncomingChannel(ctx context.Context, channel Channel) (Hash, error) {
	return e.newHash(), nil
}

func (e InMemoryExecutor) Withdraw(ctx context.Context, recipient Address, amount Balance) (Hash, error) {
	return e.newHash(), nil
}

func (e InMemoryExecutor) Announce(ctx context.Context, data AnnouncementData) (Hash, error) {
	return e.newHash(), nil
}

func (e InMemoryExecutor) RegisterSafe(ctx context.Context, safeAddress Address) (Hash, error) {
	return e.newHash(), nil
}
