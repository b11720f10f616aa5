package flow

import (
	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/model"
)

// InstructionsProcessor attaches the agent's system instruction to the
// request only; it never becomes part of the stored history.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest adds the system instruction to the chat request.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	req.Instructions = agent.GetInstruction()

	runCtx.LogDebug("agent.instruction.resolved", "agent", agent.GetName(), "length", len(req.Instructions))

	return nil
}

// ContentsProcessor copies the thread's whole conversation history into the
// request.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest adds conversation history (oldest first) to the chat request.
func (p *ContentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, _ FlowAgent) error {
	if runCtx.Session == nil {
		if len(runCtx.UserContent.Parts) > 0 {
			req.Contents = []core.Content{runCtx.UserContent}
		}
		return nil
	}

	req.Contents = answeredContents(runCtx.Session.GetConversationHistory())

	return nil
}

// answeredContents converts history into request contents, leaving out
// function calls that never got a response (a run cancelled while its tools
// were executing). Providers reject a tool call without a following result.
func answeredContents(events []core.Event) []core.Content {
	answered := make(map[string]bool)
	for _, ev := range events {
		for _, fr := range ev.GetFunctionResponses() {
			answered[fr.ID] = true
		}
	}

	contents := make([]core.Content, 0, len(events))
	for _, ev := range events {
		if ev.Content == nil || len(ev.Content.Parts) == 0 {
			continue
		}

		content := *ev.Content
		if len(ev.GetFunctionCalls()) > 0 {
			parts := make([]core.Part, 0, len(content.Parts))
			for _, part := range content.Parts {
				if fc, ok := part.(core.FunctionCallPart); ok && !answered[fc.FunctionCall.ID] {
					continue
				}
				parts = append(parts, part)
			}
			if len(parts) == 0 {
				continue
			}
			content.Parts = parts
		}

		contents = append(contents, content)
	}

	return contents
}
