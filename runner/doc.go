// Package runner implements the orchestration layer between callers and an
// agent.
//
// A Runner turns one user message on a thread into an asynchronous run:
//   - the user turn is appended to the thread history before the agent starts
//   - every complete event the agent emits is persisted before the agent is
//     resumed
//   - partial streaming fragments are forwarded to the caller but never stored
//   - the terminal error, if any, is delivered once on the error channel
//
// Runs on different threads proceed independently. A run stops when the
// context passed to Run is cancelled.
package runner
