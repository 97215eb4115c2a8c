package chainactions

import "errors"

var (
	// ErrInvalidState is returned when an Action does not apply to its
	// target's current on-chain state, e.g. funding a channel that is
	// not open.
	ErrInvalidState = errors.New("action not valid for current chain state")
	// ErrTimeout is returned when a submitted transaction's confirming
	// event does not arrive within the queue's configured wait.
	ErrTimeout = errors.New("timed out waiting for on-chain confirmation")
	// ErrTransactionSubmissionFailed is returned by ActionSender.Send
	// when the queue has been closed. Failures returned by the
	// TransactionExecutor are passed through as they are, not wrapped.
	ErrTransactionSubmissionFailed = errors.New("transaction submission failed")
	// ErrChannelAlreadyClosed is returned by CloseChannelAction when the
	// target channel's status is already ChannelClosed.
	ErrChannelAlreadyClosed = errors.New("channel already closed")
)
