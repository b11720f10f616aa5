package core

// Agent defines the interface driven by a Runner.
//
// An agent receives a RunContext, emits events through it and returns when the
// turn is complete. A single Agent value serves many runs concurrently (one per
// in-flight request), so implementations must keep per-run state in the
// RunContext rather than on the agent.
//
// Implementations must:
//   - Respect context cancellation
//   - Emit events through the provided RunContext
//   - Wait for the resume signal after non-partial events so the runner can
//     persist them before the next model turn reads history
type Agent interface {
	Name() string
	Description() string
	Run(runCtx *RunContext) error
}

// AgentInfo carries identifying details about an agent used in contexts & events.
type AgentInfo struct{ Name, Type string }
