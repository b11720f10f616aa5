package server

import (
	"context"
	"io"
	"net/http"
	"strings"
)

const completedOutput = "Request completed successfully"

// handleChat streams the answer to a prompt as raw text. A failure after
// streaming started aborts the connection without a terminal frame.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := s.schema.decode(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if !canFlush(w) {
		s.logger.Error("Error in chat stream", "thread_id", req.ThreadID, "error", "response writer does not support flushing")
		writeError(w, &Error{Status: http.StatusInternalServerError, Detail: "Streaming is not supported"})
		return
	}

	input := req.Prompt.Content

	ctx, span := s.tracer.StartRequest(r.Context(), req.ThreadID, input)
	defer span.End()

	ctx, gen := s.tracer.StartGeneration(ctx, input)
	defer gen.End()

	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		s.abort(span, gen, req.ThreadID, err)
	}

	// The turn outlives a client disconnect so the thread never keeps a tool
	// call without its response.
	textCh, errCh := s.analyst.Stream(context.WithoutCancel(ctx), req.ThreadID, input)

	var full strings.Builder
	for text := range textCh {
		full.WriteString(text)

		if _, err := io.WriteString(w, text); err != nil {
			s.drain(textCh, errCh)
			s.abort(span, gen, req.ThreadID, err)
		}
		if err := rc.Flush(); err != nil {
			s.drain(textCh, errCh)
			s.abort(span, gen, req.ThreadID, err)
		}
	}

	if err := <-errCh; err != nil {
		gen.SetOutput(full.String())
		s.abort(span, gen, req.ThreadID, err)
	}

	gen.SetOutput(full.String())
	span.SetOutput(completedOutput)
}

// canFlush reports whether w, or a writer it wraps, supports flushing. It
// follows the same Unwrap chain as http.ResponseController.
func canFlush(w http.ResponseWriter) bool {
	for {
		switch w.(type) {
		case http.Flusher, interface{ FlushError() error }:
			return true
		}

		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return false
		}
		w = u.Unwrap()
	}
}

type failer interface{ Fail(err error) }

func (s *Server) abort(span, gen failer, threadID string, err error) {
	s.logger.Error("Error in chat stream", "thread_id", threadID, "error", err)
	gen.Fail(err)
	span.Fail(err)
	panic(http.ErrAbortHandler)
}

// drain waits for the turn to finish after the client went away.
func (s *Server) drain(textCh <-chan string, errCh <-chan error) {
	for range textCh {
	}
	<-errCh
}
