package testutil

import "github.com/hupe1980/marketinsight/core"

// ThreadBuilder assembles a session holding a scripted conversation.
//
//	sess := NewThread("t1").
//		User("price of AAPL?").
//		ToolCall("call_1", "get_stock_price", `{"ticker":"AAPL"}`).
//		ToolResult("call_1", "get_stock_price", 189.5).
//		Assistant("AAPL trades at 189.5").
//		Build()
type ThreadBuilder struct {
	id     string
	runID  string
	author string
	events []core.Event
}

// NewThread creates a builder for a thread with the given id.
func NewThread(id string) *ThreadBuilder {
	return &ThreadBuilder{id: id, runID: "run", author: "analyst"}
}

// Run sets the run id attached to subsequently added events.
func (b *ThreadBuilder) Run(id string) *ThreadBuilder { b.runID = id; return b }

// User appends a user turn.
func (b *ThreadBuilder) User(text string) *ThreadBuilder {
	b.events = append(b.events, core.NewUserMessageEvent(b.runID, text))
	return b
}

// Assistant appends a complete assistant answer.
func (b *ThreadBuilder) Assistant(text string) *ThreadBuilder {
	ev := core.NewMessageEvent(b.runID, b.author, text)
	complete := true
	ev.TurnComplete = &complete
	b.events = append(b.events, ev)
	return b
}

// ToolCall appends an assistant event requesting a single tool call.
func (b *ThreadBuilder) ToolCall(id, name, args string) *ThreadBuilder {
	ev := core.NewEvent(b.runID, b.author)
	ev.Content = &core.Content{
		Role:  "assistant",
		Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}}},
	}
	b.events = append(b.events, ev)
	return b
}

// ToolResult appends the response to a previous tool call.
func (b *ThreadBuilder) ToolResult(id, name string, result any) *ThreadBuilder {
	b.events = append(b.events, core.NewFunctionResponseEvent(b.runID, b.author, id, name, result, nil))
	return b
}

// Events returns a copy of the events added so far.
func (b *ThreadBuilder) Events() []core.Event {
	return append([]core.Event(nil), b.events...)
}

// Build returns a *core.Session with the scripted history.
func (b *ThreadBuilder) Build() *core.Session {
	s := core.NewSession(b.id)
	for _, ev := range b.events {
		s.AddEvent(ev)
	}
	return s
}
