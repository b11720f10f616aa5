// Package model defines the provider-agnostic abstractions for talking to
// language models that can call tools.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers live in sub-packages (openai, anthropic) so higher layers
// (agents, flows) stay decoupled from vendor SDKs.
package model
