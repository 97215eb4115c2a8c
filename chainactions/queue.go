package chainactions

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// ActionQueueConfig configures an ActionQueue's runner loop.
type ActionQueueConfig struct {
	// MaxActionConfirmationWait bounds how long an action waits for its
	// indexed confirmation before failing with ErrTimeout.
	MaxActionConfirmationWait time.Duration
	// AntiBatchingDelay is the pause the runner loop takes between
	// popping successive actions off the queue, so submitted
	// transactions don't land in the same block and compete for a
	// nonce.
	AntiBatchingDelay time.Duration
	// QueueDepth bounds the number of actions buffered ahead of the
	// runner loop.
	QueueDepth int
}

// DefaultActionQueueConfig returns the configuration used when a queue
// is built without an explicit one.
func DefaultActionQueueConfig() ActionQueueConfig {
	return ActionQueueConfig{
		MaxActionConfirmationWait: 150 * time.Second,
		AntiBatchingDelay:         100 * time.Millisecond,
		QueueDepth:                2048,
	}
}

type actionRequest struct {
	action Action
	result chan actionResult
}

type actionResult struct {
	confirmation ActionConfirmation
	err          error
}

// PendingAction is returned by ActionSender.Send and resolves once the
// queue has executed the submitted Action.
type PendingAction struct {
	result <-chan actionResult
}

// Wait blocks until the action completes, the context is cancelled, or
// the queue is closed before processing it.
func (p PendingAction) Wait(ctx context.Context) (ActionConfirmation, error) {
	select {
	case r, ok := <-p.result:
		if !ok {
			return ActionConfirmation{}, fmt.Errorf("%w: action queue closed before completion", ErrInvalidState)
		}
		return r.confirmation, r.err
	case <-ctx.Done():
		return ActionConfirmation{}, ctx.Err()
	}
}

// ActionSender submits Actions into an ActionQueue for execution.
type ActionSender struct {
	submit chan<- actionRequest
	closed <-chan struct{}
}

// Send enqueues action and returns a handle for its eventual
// confirmation. It fails immediately if the queue has been closed.
func (s ActionSender) Send(ctx context.Context, action Action) (PendingAction, error) {
	req := actionRequest{action: action, result: make(chan actionResult, 1)}
	select {
	case s.submit <- req:
		return PendingAction{result: req.result}, nil
	case <-s.closed:
		return PendingAction{}, fmt.Errorf("%w: action queue is closed", ErrTransactionSubmissionFailed)
	case <-ctx.Done():
		return PendingAction{}, ctx.Err()
	}
}

// ActionQueue is a bounded, single-runner MPSC queue of Actions. Each
// Action popped off the queue is executed in its own goroutine, so a
// slow confirmation wait never blocks later ones, while the runner
// loop itself still paces submissions with AntiBatchingDelay.
type ActionQueue struct {
	cfg          ActionQueueConfig
	executor     TransactionExecutor
	state        ActionState
	ticketStates TicketStateUpdater
	metrics      MetricsRecorder
	log          *log.Logger

	queue  chan actionRequest
	closed chan struct{}
}

// NewActionQueue builds a queue around the given executor, state
// registry and ticket state updater. metrics may be nil, in which case
// observations are discarded.
func NewActionQueue(cfg ActionQueueConfig, executor TransactionExecutor, state ActionState, ticketStates TicketStateUpdater, metrics MetricsRecorder, logger *log.Logger) *ActionQueue {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = log.Default()
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultActionQueueConfig().QueueDepth
	}
	return &ActionQueue{
		cfg:          cfg,
		executor:     executor,
		state:        state,
		ticketStates: ticketStates,
		metrics:      metrics,
		log:          logger,
		queue:        make(chan actionRequest, cfg.QueueDepth),
		closed:       make(chan struct{}),
	}
}

// NewSender returns a producer handle for this queue.
func (q *ActionQueue) NewSender() ActionSender {
	return ActionSender{submit: q.queue, closed: q.closed}
}

// Run pops actions off the queue and executes each in its own
// goroutine until ctx is cancelled. It returns once the runner loop
// has stopped accepting new work; in-flight executions may still be
// running when it returns.
func (q *ActionQueue) Run(ctx context.Context) {
	defer func() {
		// Release every action still queued so its Wait returns.
		for {
			select {
			case req := <-q.queue:
				close(req.result)
			default:
				return
			}
		}
	}()
	defer close(q.closed)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-q.queue:
			if q.cfg.AntiBatchingDelay > 0 {
				timer.Reset(q.cfg.AntiBatchingDelay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					return
				}
			}
			go q.executeAndReport(ctx, req)
		}
	}
}

func (q *ActionQueue) executeAndReport(ctx context.Context, req actionRequest) {
	actionName := fmt.Sprintf("%T", req.action)
	q.log.Debug("executing action", "action", req.action)

	confirmation, err := q.executeAction(ctx, req.action)
	if err != nil {
		if redeem, ok := req.action.(RedeemTicketAction); ok && q.ticketStates != nil {
			q.log.Error("marking ticket as untouched after failed redemption", "ticket", redeem.Ticket, "err", err)
			if uerr := q.ticketStates.SetTicketStatus(ctx, redeem.Ticket, TicketUntouched); uerr != nil {
				q.log.Error("cannot mark ticket as untouched", "ticket", redeem.Ticket, "err", uerr)
			}
		}

		if err == ErrTimeout {
			q.log.Error("timeout while waiting for confirmation", "action", req.action)
			q.metrics.RecordAction(actionName, "timeout")
		} else {
			q.log.Error("action failed", "action", req.action, "err", err)
			q.metrics.RecordAction(actionName, "failure")
		}
	} else {
		q.log.Info("action confirmed", "confirmation", confirmation)
		if trace, terr := confirmation.TraceBytes(); terr == nil {
			q.log.Debug("action trace", "cbor", trace)
		}
		q.metrics.RecordAction(actionName, "success")
	}

	req.result <- actionResult{confirmation: confirmation, err: err}
	close(req.result)
}

func (q *ActionQueue) executeAction(ctx context.Context, action Action) (ActionConfirmation, error) {
	var exp IndexerExpectation

	switch a := action.(type) {
	case RedeemTicketAction:
		txHash, err := q.executor.RedeemTicket(ctx, a.Ticket)
		if err != nil {
			return ActionConfirmation{}, err
		}
		channelID := a.Ticket.Ticket.ChannelID
		exp = IndexerExpectation{TxHash: txHash, Predicate: func(e ChainEventType) bool {
			ev, ok := e.(TicketRedeemedEvent)
			return ok && ev.Channel.ID == channelID
		}}

	case OpenChannelAction:
		txHash, err := q.executor.FundChannel(ctx, Channel{Destination: a.Destination}, a.Stake)
		if err != nil {
			return ActionConfirmation{}, err
		}
		dest := a.Destination
		exp = IndexerExpectation{TxHash: txHash, Predicate: func(e ChainEventType) bool {
			ev, ok := e.(ChannelOpenedEvent)
			return ok && ev.Channel.Destination == dest
		}}

	case FundChannelAction:
		if a.Channel.Status.Kind != ChannelOpen {
			return ActionConfirmation{}, fmt.Errorf("%w: cannot fund %s because it is not open", ErrInvalidState, a.Channel)
		}
		txHash, err := q.executor.FundChannel(ctx, a.Channel, a.Amount)
		if err != nil {
			return ActionConfirmation{}, err
		}
		channelID := a.Channel.ID
		amount := a.Amount
		exp = IndexerExpectation{TxHash: txHash, Predicate: func(e ChainEventType) bool {
			ev, ok := e.(ChannelBalanceIncreasedEvent)
			return ok && ev.Channel.ID == channelID && ev.Diff.Equal(amount)
		}}

	case CloseChannelAction:
		var err error
		var txHash Hash
		channelID := a.Channel.ID
		expectInitiated := false
		switch a.Direction {
		case Incoming:
			switch a.Channel.Status.Kind {
			case ChannelOpen, ChannelPendingToClose:
				txHash, err = q.executor.CloseIncomingChannel(ctx, a.Channel)
			case ChannelClosed:
				q.log.Warn("channel already closed", "channel", a.Channel)
				return ActionConfirmation{}, fmt.Errorf("%w: %s", ErrChannelAlreadyClosed, a.Channel)
			}
		case Outgoing:
			switch a.Channel.Status.Kind {
			case ChannelOpen:
				txHash, err = q.executor.InitiateOutgoingChannelClosure(ctx, a.Channel)
				expectInitiated = true
			case ChannelPendingToClose:
				txHash, err = q.executor.FinalizeOutgoingChannelClosure(ctx, a.Channel)
			case ChannelClosed:
				q.log.Warn("channel already closed", "channel", a.Channel)
				return ActionConfirmation{}, fmt.Errorf("%w: %s", ErrChannelAlreadyClosed, a.Channel)
			}
		}
		if err != nil {
			return ActionConfirmation{}, err
		}
		if expectInitiated {
			exp = IndexerExpectation{TxHash: txHash, Predicate: func(e ChainEventType) bool {
				ev, ok := e.(ChannelClosureInitiatedEvent)
				return ok && ev.Channel.ID == channelID
			}}
		} else {
			exp = IndexerExpectation{TxHash: txHash, Predicate: func(e ChainEventType) bool {
				ev, ok := e.(ChannelClosedEvent)
				return ok && ev.Channel.ID == channelID
			}}
		}

	case WithdrawAction:
		txHash, err := q.executor.Withdraw(ctx, a.Recipient, a.Amount)
		if err != nil {
			return ActionConfirmation{}, err
		}
		return ActionConfirmation{TxHash: txHash, Action: action}, nil

	case WithdrawNativeAction:
		txHash, err := q.executor.Withdraw(ctx, a.Recipient, a.Amount)
		if err != nil {
			return ActionConfirmation{}, err
		}
		return ActionConfirmation{TxHash: txHash, Action: action}, nil

	case AnnounceAction:
		txHash, err := q.executor.Announce(ctx, a.Data)
		if err != nil {
			return ActionConfirmation{}, err
		}
		multiaddress := a.Data.Multiaddress
		exp = IndexerExpectation{TxHash: txHash, Predicate: func(e ChainEventType) bool {
			ev, ok := e.(AnnouncementEvent)
			return ok && ev.contains(multiaddress)
		}}

	case RegisterSafeAction:
		txHash, err := q.executor.RegisterSafe(ctx, a.SafeAddress)
		if err != nil {
			return ActionConfirmation{}, err
		}
		safeAddress := a.SafeAddress
		exp = IndexerExpectation{TxHash: txHash, Predicate: func(e ChainEventType) bool {
			ev, ok := e.(NodeSafeRegisteredEvent)
			return ok && ev.SafeAddress == safeAddress
		}}

	default:
		return ActionConfirmation{}, fmt.Errorf("%w: unknown action type %T", ErrInvalidState, action)
	}

	return q.awaitConfirmation(ctx, action, exp)
}

// awaitConfirmation races the indexer's notification against
// MaxActionConfirmationWait. matchCh only ever carries a value or is
// lost to the timeout/ctx branches below; ActionState never delivers
// an error on it, so an externally-cancelled expectation degrades to
// ErrTimeout rather than ErrInvalidState.
func (q *ActionQueue) awaitConfirmation(ctx context.Context, action Action, exp IndexerExpectation) (ActionConfirmation, error) {
	matchCh, err := q.state.RegisterExpectation(exp)
	if err != nil {
		return ActionConfirmation{}, err
	}

	timer := time.NewTimer(q.cfg.MaxActionConfirmationWait)
	defer timer.Stop()

	select {
	case match := <-matchCh:
		return ActionConfirmation{TxHash: match.TxHash, Event: match.Event, Action: action}, nil
	case <-timer.C:
		q.state.UnregisterExpectation(exp.TxHash)
		return ActionConfirmation{}, ErrTimeout
	case <-ctx.Done():
		q.state.UnregisterExpectation(exp.TxHash)
		return ActionConfirmation{}, ctx.Err()
	}
}
