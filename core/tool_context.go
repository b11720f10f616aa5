package core

import (
	"context"

	"github.com/hupe1980/marketinsight/logging"
)

// ToolContext provides a constrained surface for tool implementations invoked
// by an agent: cancellation, identifiers and the run logger.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext
// and the provider assigned functionCallID.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	logger := newLoggerAdapter(runCtx.Logger(),
		"session_id", runCtx.SessionID, "run_id", runCtx.RunID, "function_call_id", functionCallID)

	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		loggerAdapter:  logger,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionID returns the session (thread) ID of the invocation.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.runCtx.Agent.Name }
