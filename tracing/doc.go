// Package tracing configures OpenTelemetry and records the observation tree
// of a chat request: a "chat-request" span per HTTP request with a nested
// "agent-stream" generation span around the agent call. Input, output and
// metadata are stored as Langfuse-compatible span attributes so the spans can
// be ingested by an OTLP-capable Langfuse backend or any other collector.
package tracing
