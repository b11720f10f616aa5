// Package core provides the foundational domain types, interfaces and execution
// contexts shared by agents, flows, tools and the runner. It defines:
//
//   - Agents (units of work driven by a runner)
//   - Sessions (per-thread conversational containers with event history)
//   - Events (immutable communication records between agent, runner and caller)
//   - RunContext / ToolContext (scoped execution and tool sandboxing)
//   - SessionStore (pluggable history storage)
//
// Persistence and orchestration live in other packages; core only exposes the
// small interfaces they implement.
package core
