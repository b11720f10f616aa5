// Package agent contains the model-centric conversational agent used by the
// runner: a ModelAgent binds a language model, a system instruction and a set
// of tools, and drives a flow that streams the model output and executes the
// tool calls it requests.
//
// Execution Model:
//   - A single ModelAgent serves many concurrent runs; all per-run state
//     lives in the *core.RunContext passed to Run
//   - Run forwards every flow event to the run's emit channel and returns the
//     flow's terminal error, if any
package agent
