package flow

import (
	"fmt"
	"sort"

	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/model"
)

// BaseFlow is a single-agent flow implementing the request -> LLM ->
// (optional tool loop) cycle with pluggable pre/post processors.
type BaseFlow struct {
	agent              FlowAgent
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
	executor           FunctionExecutor
}

// NewBaseFlow creates a new basic single-agent flow.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:              agent,
		requestProcessors:  []RequestProcessor{},
		responseProcessors: []ResponseProcessor{},
		executor: NewParallelFunctionExecutor(FunctionExecutorConfig{
			MaxParallel:   4,
			PreserveOrder: true,
		}),
	}
}

// AddRequestProcessor appends a request processor; order of registration defines execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// AddResponseProcessor appends a response processor executed after each model chunk.
func (f *BaseFlow) AddResponseProcessor(processor ResponseProcessor) {
	f.responseProcessors = append(f.responseProcessors, processor)
}

// SetFunctionExecutor replaces the executor used for tool calls.
func (f *BaseFlow) SetFunctionExecutor(executor FunctionExecutor) {
	f.executor = executor
}

// Execute launches the flow asynchronously and returns a channel of Events.
// The event channel is closed once a final response is emitted or an
// unrecoverable error occurs; the error (if any) is then available on the
// second channel.
func (f *BaseFlow) Execute(runCtx *core.RunContext) (<-chan core.Event, <-chan error) {
	eventChan := make(chan core.Event, 100)
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)
		defer close(eventChan)

		for {
			last, err := f.runOnce(runCtx, eventChan)
			if err != nil {
				errChan <- err
				return
			}
			if last == nil {
				return
			}
			// A tool response asks for another model turn.
			if len(last.GetFunctionResponses()) > 0 {
				continue
			}
			if last.IsFinalResponse() {
				return
			}
		}
	}()

	return eventChan, errChan
}

// emit forwards an event to the consumer and, for complete events, blocks
// until the runner has persisted it.
func (f *BaseFlow) emit(runCtx *core.RunContext, eventChan chan<- core.Event, ev core.Event) error {
	select {
	case <-runCtx.Done():
		return runCtx.Err()
	case eventChan <- ev:
	}

	if ev.IsPartial() {
		return nil
	}

	return runCtx.WaitForResume()
}

// toolDefinitions returns the agent's tools sorted by name.
func (f *BaseFlow) toolDefinitions() []model.ToolDefinition {
	if !f.agent.IsFunctionCallingEnabled() {
		return nil
	}

	tools := f.agent.GetTools()
	if len(tools) == 0 {
		return nil
	}

	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return defs
}

// runOnce performs one model turn (including any tool executions) and returns
// the last emitted Event. A nil event with nil error signals termination.
func (f *BaseFlow) runOnce(runCtx *core.RunContext, eventChan chan<- core.Event) (*core.Event, error) {
	// Refresh so processors see the latest conversation (including tool responses).
	if runCtx.SessionStore != nil {
		if err := runCtx.RefreshSession(); err != nil {
			return nil, fmt.Errorf("refresh session: %w", err)
		}
	}

	req := &model.Request{Stream: f.agent.IsStreamingEnabled()}

	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
			return nil, fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
		}
	}

	req.Tools = f.toolDefinitions()

	if runCtx.Limiter != nil {
		if err := runCtx.Limiter.Acquire(); err != nil {
			return nil, err
		}
	}

	respCh, errCh := f.agent.GetLLM().Generate(runCtx.Context, *req)

	var lastEvent *core.Event

	for respCh != nil {
		select {
		case <-runCtx.Done():
			return lastEvent, runCtx.Err()
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return lastEvent, fmt.Errorf("model %s: %w", f.agent.GetLLM().Info().Name, err)
			}
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			for _, processor := range f.responseProcessors {
				if err := processor.ProcessResponse(runCtx, &resp, f.agent); err != nil {
					return lastEvent, fmt.Errorf("response processor %s failed: %w", processor.Name(), err)
				}
			}

			// Streamed tool call fragments are only surfaced in the final chunk.
			if resp.Partial && resp.Content.Text() == "" {
				continue
			}

			ev := core.NewEvent(runCtx.RunID, f.agent.GetName())
			content := resp.Content
			content.Role = "assistant"
			ev.Content = &content
			partial := resp.Partial
			ev.Partial = &partial

			if !resp.Partial && len(ev.GetFunctionCalls()) == 0 {
				complete := true
				ev.TurnComplete = &complete
			}

			if err := f.emit(runCtx, eventChan, ev); err != nil {
				return lastEvent, err
			}
			lastEvent = &ev

			if fnCalls := ev.GetFunctionCalls(); len(fnCalls) > 0 {
				var emitted *core.Event
				f.executor.Execute(runCtx, f.agent, f.agent.GetTools(), fnCalls, func(respEv core.Event) error {
					if err := f.emit(runCtx, eventChan, respEv); err != nil {
						return err
					}
					emitted = &respEv
					return nil
				})
				if err := runCtx.Err(); err != nil {
					return lastEvent, err
				}
				if emitted != nil {
					lastEvent = emitted
				}
			}
		}
	}

	// Drain a late error reported after the last response.
	if errCh != nil {
		if err, ok := <-errCh; ok && err != nil {
			return lastEvent, fmt.Errorf("model %s: %w", f.agent.GetLLM().Info().Name, err)
		}
	}

	if lastEvent == nil || lastEvent.IsPartial() {
		return nil, fmt.Errorf("model %s: stream ended without a final response", f.agent.GetLLM().Info().Name)
	}

	return lastEvent, nil
}
