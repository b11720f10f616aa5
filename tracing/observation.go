package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names of the chat observation tree.
const (
	RequestSpanName    = "chat-request"
	GenerationSpanName = "agent-stream"
	// GenerationModel labels the agent generation; the agent may call the
	// LLM several times per turn so no single model name applies.
	GenerationModel = "agentic-workflow"
)

// Attribute keys understood by Langfuse's OTLP ingestion.
const (
	AttrObservationType   = attribute.Key("langfuse.observation.type")
	AttrObservationInput  = attribute.Key("langfuse.observation.input")
	AttrObservationOutput = attribute.Key("langfuse.observation.output")
	AttrUserID            = attribute.Key("langfuse.observation.metadata.user_id")
	AttrTraceUserID       = attribute.Key("user.id")
	AttrModel             = attribute.Key("gen_ai.request.model")
)

const instrumentationName = "github.com/hupe1980/marketinsight/tracing"

// Tracer starts the observation spans of a chat request.
type Tracer struct {
	tracer trace.Tracer
}

// New returns a Tracer backed by tp; a nil tp uses the global provider.
func New(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{tracer: tp.Tracer(instrumentationName)}
}

// Observation is one open span.
type Observation struct {
	span trace.Span
}

// StartRequest opens the request span tagged with the thread identifier.
func (t *Tracer) StartRequest(ctx context.Context, threadID, input string) (context.Context, *Observation) {
	ctx, span := t.tracer.Start(ctx, RequestSpanName,
		trace.WithAttributes(
			AttrObservationType.String("span"),
			AttrObservationInput.String(input),
			AttrUserID.String(threadID),
			AttrTraceUserID.String(threadID),
		),
	)
	return ctx, &Observation{span: span}
}

// StartGeneration opens the nested generation span around the agent call.
func (t *Tracer) StartGeneration(ctx context.Context, input string) (context.Context, *Observation) {
	ctx, span := t.tracer.Start(ctx, GenerationSpanName,
		trace.WithAttributes(
			AttrObservationType.String("generation"),
			AttrObservationInput.String(input),
			AttrModel.String(GenerationModel),
		),
	)
	return ctx, &Observation{span: span}
}

// SetOutput records the observation output.
func (o *Observation) SetOutput(output string) {
	o.span.SetAttributes(AttrObservationOutput.String(output))
}

// Fail records err and marks the span as failed.
func (o *Observation) Fail(err error) {
	o.span.RecordError(err)
	o.span.SetStatus(codes.Error, err.Error())
}

// End closes the span.
func (o *Observation) End() { o.span.End() }
