package flow

// ChatFlow drives one chat turn of an assistant: the system instruction and
// the thread history feed every model call, and the tools requested in one
// model turn run concurrently with their responses recorded in call order.
type ChatFlow struct{ *BaseFlow }

// ChatFlowOptions configures a ChatFlow.
type ChatFlowOptions struct {
	// MaxParallelTools bounds concurrent tool executions per model turn.
	// Zero or less runs all requested tools at once.
	MaxParallelTools int
}

// NewChatFlow creates a chat flow for agent.
func NewChatFlow(agent FlowAgent, optFns ...func(o *ChatFlowOptions)) *ChatFlow {
	opts := ChatFlowOptions{
		MaxParallelTools: 4,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	f := &ChatFlow{BaseFlow: NewBaseFlow(agent)}
	f.SetFunctionExecutor(NewParallelFunctionExecutor(FunctionExecutorConfig{
		MaxParallel:   opts.MaxParallelTools,
		PreserveOrder: true,
	}))
	f.AddRequestProcessor(NewInstructionsProcessor())
	f.AddRequestProcessor(NewContentsProcessor())

	return f
}
