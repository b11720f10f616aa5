// Package flow provides the execution pipeline behind model agents.
//
// A flow turns one user turn into a sequence of model calls and tool
// executions: it assembles the request through pluggable processors, streams
// the model output as events, runs requested tools and loops until the model
// produces a final answer.
package flow

import (
	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/model"
	"github.com/hupe1980/marketinsight/tool"
)

// Flow defines the interface for agent execution flows.
type Flow interface {
	// Execute runs the flow asynchronously. The event channel is closed when
	// the turn is complete; the error channel then yields at most one error.
	Execute(runCtx *core.RunContext) (<-chan core.Event, <-chan error)
}

// FlowAgent defines the interface that agents must implement to work with flows.
//
// This interface provides flows with access to agent capabilities without
// exposing the full agent implementation details.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetLLM returns the language model instance.
	GetLLM() model.Model

	// GetInstruction returns the system instruction sent with every model call.
	GetInstruction() string

	// GetTools returns the registered tools for function calling.
	GetTools() map[string]tool.Tool

	// IsFunctionCallingEnabled returns whether function calling is enabled.
	IsFunctionCallingEnabled() bool

	// IsStreamingEnabled returns whether streaming responses are enabled.
	IsStreamingEnabled() bool
}

// RequestProcessor processes the request before sending it to the LLM.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the chat request before LLM execution.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}

// ResponseProcessor processes the response after receiving it from the LLM.
type ResponseProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessResponse inspects or rewrites a model response chunk.
	ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error
}
