package agent

import (
	"fmt"
	"sort"

	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/flow"
	"github.com/hupe1980/marketinsight/model"
	"github.com/hupe1980/marketinsight/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	// Instruction is the system prompt attached to every model call.
	Instruction           string
	EnableStreaming       bool
	EnableFunctionCalling bool
	Tools                 []tool.Tool
}

// ModelAgent integrates a language model with a tool registry.
//
// This agent implementation supports:
//   - A system instruction sent with every model call (never stored in history)
//   - Function calling with registered tools, executed in parallel
//   - Streaming responses for real-time interactions
//
// The tool registry is fixed at construction, so a ModelAgent is safe for
// concurrent runs.
type ModelAgent struct {
	BaseAgent
	llm                   model.Model
	instruction           string
	tools                 map[string]tool.Tool
	enableFunctionCalling bool
	enableStreaming       bool
}

// NewModelAgent creates a new model-based agent.
//
// Defaults: streaming and function calling enabled and a generic assistant
// instruction.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:           fmt.Sprintf("You are %s, a helpful AI assistant.", name),
		EnableStreaming:       true,
		EnableFunctionCalling: true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	tools := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		tools[t.Name()] = t
	}

	return &ModelAgent{
		BaseAgent:             NewBaseAgent(name),
		llm:                   llm,
		instruction:           opts.Instruction,
		enableStreaming:       opts.EnableStreaming,
		enableFunctionCalling: opts.EnableFunctionCalling,
		tools:                 tools,
	}
}

// HasTool checks if a tool is registered with the agent.
func (a *ModelAgent) HasTool(name string) bool {
	_, exists := a.tools[name]
	return exists
}

// ListTools returns the names of all registered tools in sorted order.
func (a *ModelAgent) ListTools() []string {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetName returns the agent's display name.
func (a *ModelAgent) GetName() string { return a.Name() }

// GetLLM returns the language model instance.
func (a *ModelAgent) GetLLM() model.Model { return a.llm }

// GetTools returns a copy of the tool registry.
func (a *ModelAgent) GetTools() map[string]tool.Tool {
	tools := make(map[string]tool.Tool, len(a.tools))
	for name, t := range a.tools {
		tools[name] = t
	}
	return tools
}

// IsFunctionCallingEnabled returns whether function calling is enabled.
func (a *ModelAgent) IsFunctionCallingEnabled() bool { return a.enableFunctionCalling }

// IsStreamingEnabled returns whether streaming responses are enabled.
func (a *ModelAgent) IsStreamingEnabled() bool { return a.enableStreaming }

// GetInstruction returns the system prompt.
func (a *ModelAgent) GetInstruction() string { return a.instruction }

// Run implements core.Agent: it executes a single-agent flow and forwards
// its events to the run's emit channel.
func (a *ModelAgent) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", a.Name(), "run", runCtx.RunID)

	fl := flow.NewChatFlow(a)
	eventChan, errChan := fl.Execute(runCtx)

	for event := range eventChan {
		select {
		case runCtx.Emit <- event:
			if !event.IsPartial() {
				role := ""
				if event.Content != nil {
					role = event.Content.Role
				}
				runCtx.LogDebug(
					"agent.event.forward",
					"agent", a.Name(),
					"event_id", event.ID,
					"role", role,
					"fn_calls", len(event.GetFunctionCalls()),
				)
			}
		case <-runCtx.Done():
			runCtx.LogWarn("agent.run.context_done", "agent", a.Name(), "error", runCtx.Err())
			return runCtx.Err()
		}
	}

	if err := <-errChan; err != nil {
		runCtx.LogError("agent.flow.execute.error", "agent", a.Name(), "error", err.Error())
		return fmt.Errorf("flow execution failed: %w", err)
	}

	runCtx.LogDebug("agent.flow.execute.complete", "agent", a.Name())

	return nil
}
