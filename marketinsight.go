// Package marketinsight is a conversational financial-data assistant.
//
// An Analyst couples a tool-calling model agent with the market data lookup
// tools and keeps one conversation history per thread identifier in process
// memory. Most applications interact with this package by:
//  1. Creating an Analyst via New with a model.Model
//  2. Streaming answers with Stream (or collecting them with Ask)
//
// The HTTP surface lives in package server; the command in cmd/marketinsight
// wires configuration, logging and tracing around it.
package marketinsight

import (
	"context"
	"strings"

	"github.com/hupe1980/marketinsight/agent"
	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/logging"
	"github.com/hupe1980/marketinsight/marketdata"
	"github.com/hupe1980/marketinsight/model"
	"github.com/hupe1980/marketinsight/runner"
	"github.com/hupe1980/marketinsight/session"
	"github.com/hupe1980/marketinsight/tool"
	"github.com/hupe1980/marketinsight/tool/market"
)

// SystemInstruction is sent with every model call. It is not stored in the
// thread history.
const SystemInstruction = "You are a professional stock market analyst. For every user query, first determine whether a relevant tool can provide accurate or real-time data. If an appropriate tool exists, you must use it before answering. If the user does not provide an exact stock ticker, use the available tool to identify or resolve the correct ticker when required. Only when no suitable tool applies should you respond using your own reasoning and general market knowledge. Never guess, assume, or fabricate any financial data."

// Options configures an Analyst.
type Options struct {
	// Name identifies the agent in events and logs.
	Name string
	// Provider backs the lookup tools (defaults to a Yahoo Finance client).
	Provider marketdata.Provider
	// Tools overrides the lookup tool set built from Provider.
	Tools []tool.Tool
	// SessionStore holds per-thread history (defaults to in-memory).
	SessionStore core.SessionStore
	// MaxModelCalls bounds the model calls of one turn (0 = unlimited).
	MaxModelCalls int
	// EnableStreaming requests token streaming from the model.
	EnableStreaming bool
	// Logger receives framework logs.
	Logger logging.Logger
}

// Analyst answers market questions on behalf of many concurrent threads.
type Analyst struct {
	agent  *agent.ModelAgent
	runner *runner.Runner
	store  core.SessionStore
	logger logging.Logger
}

// New creates an Analyst backed by llm.
func New(llm model.Model, optFns ...func(o *Options)) *Analyst {
	opts := Options{
		Name:            "MarketInsight",
		MaxModelCalls:   25,
		EnableStreaming: true,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}

	if opts.Tools == nil {
		if opts.Provider == nil {
			opts.Provider = marketdata.NewClient()
		}
		opts.Tools = market.NewTools(opts.Provider)
	}

	modelAgent := agent.NewModelAgent(opts.Name, llm, func(o *agent.ModelAgentOptions) {
		o.Instruction = SystemInstruction
		o.EnableStreaming = opts.EnableStreaming
		o.Tools = opts.Tools
	})
	modelAgent.SetDescription("Professional stock market analyst backed by market data lookup tools")

	r := runner.New(modelAgent, func(o *runner.Options) {
		o.SessionStore = opts.SessionStore
		o.MaxModelCalls = opts.MaxModelCalls
		o.Logger = opts.Logger
	})

	return &Analyst{agent: modelAgent, runner: r, store: opts.SessionStore, logger: opts.Logger}
}

// Tools returns the names of the tools available to the model.
func (a *Analyst) Tools() []string { return a.agent.ListTools() }

// Stream answers message within threadID. Text fragments are delivered in
// order on the first channel; concatenated they form the full answer. The
// error channel yields at most one error. Both channels are closed when the
// turn ends.
func (a *Analyst) Stream(ctx context.Context, threadID, message string) (<-chan string, <-chan error) {
	textCh := make(chan string, 64)
	errCh := make(chan error, 1)

	_, events, runErrs, err := a.runner.Run(ctx, threadID, core.NewTextContent("user", message))
	if err != nil {
		errCh <- err
		close(textCh)
		close(errCh)
		return textCh, errCh
	}

	go func() {
		defer close(errCh)
		defer close(textCh)

		streamed := false // partial text seen for the current model turn

		for ev := range events {
			text := assistantText(ev)

			if ev.IsPartial() {
				streamed = streamed || text != ""
			} else {
				// Non-streaming models deliver the whole answer at once.
				if streamed {
					text = ""
				}
				streamed = false
			}

			if text == "" {
				continue
			}

			select {
			case textCh <- text:
			case <-ctx.Done():
			}
		}

		if err := <-runErrs; err != nil {
			errCh <- err
		}
	}()

	return textCh, errCh
}

// Ask is a synchronous helper around Stream that returns the full answer.
func (a *Analyst) Ask(ctx context.Context, threadID, message string) (string, error) {
	textCh, errCh := a.Stream(ctx, threadID, message)

	var sb strings.Builder
	for text := range textCh {
		sb.WriteString(text)
	}

	if err := <-errCh; err != nil {
		return sb.String(), err
	}

	return sb.String(), nil
}

// History returns the stored conversation of threadID, oldest first.
func (a *Analyst) History(threadID string) ([]core.Event, error) {
	sess, err := a.store.Get(threadID)
	if err != nil {
		return nil, err
	}
	return sess.GetConversationHistory(), nil
}

func assistantText(ev core.Event) string {
	if ev.Content == nil || ev.Content.Role != "assistant" {
		return ""
	}
	return ev.Content.Text()
}
