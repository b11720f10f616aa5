package core

import "context"

// Runner defines the orchestration contract for executing an agent within a
// conversational session. Run is asynchronous: events stream on one channel
// and a terminal error on another. Cancelling ctx stops the run.
//
// Semantics & Guarantees:
//   - Event Ordering: events of one run are delivered in the order produced.
//   - Channel Lifecycle: the events channel is closed after the run completes
//     (success, error, or cancellation). The error channel carries at most one
//     terminal error then closes.
//   - Partial Events: streaming fragments are delivered but never persisted.
type Runner interface {
	// Run starts an asynchronous agent execution bound to sessionID using
	// userContent as the new user turn. The immediate error covers startup
	// failures such as session load.
	Run(ctx context.Context, sessionID string, userContent Content) (string, <-chan Event, <-chan error, error)
}
