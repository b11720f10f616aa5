package runner

import (
	"context"
	"fmt"

	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/internal/util"
	"github.com/hupe1980/marketinsight/logging"
	"github.com/hupe1980/marketinsight/session"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run (0 = unlimited).
	MaxModelCalls int
	// SessionStore holds per-thread history.
	SessionStore core.SessionStore
	// Logger receives run lifecycle logs.
	Logger logging.Logger
}

// Runner coordinates agent execution: it creates run contexts, streams
// events and persists history. A run ends when the agent returns or the
// context passed to Run is cancelled. Run is safe for concurrent use.
type Runner struct {
	agent core.Agent

	eventBufferSize int
	maxModelCalls   int

	sessionStore core.SessionStore
	logger       logging.Logger
}

var _ core.Runner = (*Runner)(nil)

// New constructs a Runner with optional overrides.
func New(agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   25,
		SessionStore:    session.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		agent:           agent,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		sessionStore:    opts.SessionStore,
		logger:          opts.Logger,
	}
}

// SessionStore exposes the store backing thread history.
func (r *Runner) SessionStore() core.SessionStore { return r.sessionStore }

// Run starts an asynchronous run on sessionID with userContent as the new
// user turn. It returns the run ID, the event stream and a channel yielding
// at most one terminal error. Both channels are closed when the run ends.
func (r *Runner) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	runID := util.NewID()

	userEvent := core.NewUserContentEvent(runID, &userContent)
	if err := r.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	sess, err := r.sessionStore.Get(sessionID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)
	agentDone := make(chan error, 1)
	resumeCh := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(ctx)

	runCtx := core.NewRunContext(
		ctx,
		sessionID,
		runID,
		core.AgentInfo{Name: r.agent.Name(), Type: fmt.Sprintf("%T", r.agent)},
		userContent,
		r.maxModelCalls,
		agentEmit,
		resumeCh,
		sess,
		r.sessionStore,
		r.logger,
	)

	r.logger.Debug("runner.run.start", "run_id", runID, "session_id", sessionID, "agent", r.agent.Name())

	go func() {
		defer close(agentEmit)
		agentDone <- r.agent.Run(runCtx)
	}()

	go func() {
		defer func() {
			cancel()
			close(eventsCh)
			close(errorsCh)
		}()

		procErr := r.processEvents(runCtx, sessionID, agentEmit, resumeCh, eventsCh, cancel)
		agentErr := <-agentDone

		switch {
		case procErr != nil:
			errorsCh <- procErr
		case agentErr != nil:
			errorsCh <- fmt.Errorf("agent execution failed: %w", agentErr)
		}

		r.logger.Debug("runner.run.complete", "run_id", runID, "session_id", sessionID,
			"error", procErr != nil || agentErr != nil)
	}()

	return runID, eventsCh, errorsCh, nil
}

// processEvents persists and forwards agent events until the agent closes its
// emit channel. A persistence failure cancels the run; the remaining events
// are drained so the agent can observe the cancellation and exit.
func (r *Runner) processEvents(
	runCtx *core.RunContext,
	sessionID string,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
	cancel context.CancelFunc,
) error {
	var failure error

	for ev := range agentEmit {
		if failure != nil || runCtx.Err() != nil {
			continue
		}

		if !ev.IsPartial() {
			if err := r.persist(sessionID, ev); err != nil {
				r.logger.Error("runner.event.persist.error", "session_id", sessionID, "event_id", ev.ID, "error", err.Error())
				failure = err
				cancel()
				continue
			}
		}

		select {
		case <-runCtx.Done():
			continue
		case eventsCh <- ev:
		}

		if !ev.IsPartial() {
			r.logger.Debug("runner.event.delivered", "event_id", ev.ID, "session_id", sessionID)
			select {
			case resumeCh <- struct{}{}:
			default:
			}
		}
	}

	return failure
}

// persist appends a complete event to the thread history.
func (r *Runner) persist(sessionID string, ev core.Event) error {
	if err := r.sessionStore.AppendEvent(sessionID, ev); err != nil {
		return fmt.Errorf("failed to append event to session: %w", err)
	}

	return nil
}
