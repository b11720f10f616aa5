// Package server exposes an Analyst over HTTP: a health probe and a chat
// endpoint that streams the answer as it is generated.
package server

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/marketinsight/logging"
	"github.com/hupe1980/marketinsight/tracing"
)

// Streamer produces the answer of one chat turn as ordered text fragments.
// The error channel yields at most one error; both channels are closed when
// the turn ends.
type Streamer interface {
	Stream(ctx context.Context, threadID, message string) (<-chan string, <-chan error)
}

// Options configures a Server.
type Options struct {
	// ServiceName names the inbound HTTP spans.
	ServiceName string
	// TracerProvider overrides the global provider for all spans.
	TracerProvider trace.TracerProvider
	// Logger receives request failures.
	Logger logging.Logger
}

// Server routes HTTP requests to a Streamer.
type Server struct {
	analyst Streamer
	tracer  *tracing.Tracer
	logger  logging.Logger
	schema  *requestSchema
	handler http.Handler
}

// New creates a Server for analyst.
func New(analyst Streamer, optFns ...func(o *Options)) (*Server, error) {
	opts := Options{
		ServiceName: "marketinsight",
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	schema, err := compileRequestSchema()
	if err != nil {
		return nil, err
	}

	s := &Server{
		analyst: analyst,
		tracer:  tracing.New(opts.TracerProvider),
		logger:  opts.Logger,
		schema:  schema,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	otelOpts := []otelhttp.Option{
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	}
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}

	s.handler = allowAllOrigins(otelhttp.NewHandler(mux, opts.ServiceName, otelOpts...))

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Service is running",
	})
}
