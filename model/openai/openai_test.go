package openai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/model"
)

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return NewModelFromClient(&client, func(o *Options) { o.Model = "c1/test" })
}

func writeSSE(w http.ResponseWriter, chunks ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, c := range chunks {
		fmt.Fprintf(w, "data: %s\n\n", c)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func collect(t *testing.T, m *Model, req model.Request) ([]model.Response, error) {
	t.Helper()
	out, errCh := m.Generate(t.Context(), req)
	var responses []model.Response
	for r := range out {
		responses = append(responses, r)
	}
	return responses, <-errCh
}

func TestGenerate_StreamingText(t *testing.T) {
	var body map[string]any
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		writeSSE(w,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"AAPL "}}]}`,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":"is up."}}]}`,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		)
	})

	responses, err := collect(t, m, model.Request{
		Instructions: "be an analyst",
		Contents:     []core.Content{core.NewTextContent("user", "How is AAPL?")},
		Stream:       true,
	})
	require.NoError(t, err)
	require.Len(t, responses, 3)

	assert.True(t, responses[0].Partial)
	assert.Equal(t, "AAPL ", responses[0].Content.Text())
	assert.Equal(t, "is up.", responses[1].Content.Text())

	final := responses[2]
	assert.False(t, final.Partial)
	assert.Equal(t, "AAPL is up.", final.Content.Text())
	assert.Equal(t, "stop", final.FinishReason)

	assert.Equal(t, "c1/test", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "be an analyst", msgs[0].(map[string]any)["content"])
}

func TestGenerate_StreamingToolCalls(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		writeSSE(w,
			`{"id":"c2","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"get_stock_price","arguments":"{\"ticker\":"}}]}}]}`,
			`{"id":"c2","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"AAPL\"}"}}]}}]}`,
			`{"id":"c2","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_2","type":"function","function":{"name":"get_news","arguments":"{\"ticker\":\"AAPL\"}"}}]}}]}`,
			`{"id":"c2","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		)
	})

	responses, err := collect(t, m, model.Request{
		Contents: []core.Content{core.NewTextContent("user", "AAPL?")},
		Stream:   true,
	})
	require.NoError(t, err)

	final := responses[len(responses)-1]
	require.False(t, final.Partial)
	assert.Equal(t, "tool_calls", final.FinishReason)
	require.Len(t, final.Content.Parts, 2)

	first := final.Content.Parts[0].(core.FunctionCallPart).FunctionCall
	assert.Equal(t, "call_1", first.ID)
	assert.Equal(t, "get_stock_price", first.Name)
	assert.JSONEq(t, `{"ticker":"AAPL"}`, first.Arguments)
	assert.Equal(t, "get_news", final.Content.Parts[1].(core.FunctionCallPart).FunctionCall.Name)
}

func TestGenerate_NonStreaming(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c3","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hello"}}],
			"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`)
	})

	responses, err := collect(t, m, model.Request{Contents: []core.Content{core.NewTextContent("user", "hi")}})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "Hello", responses[0].Content.Text())
	require.NotNil(t, responses[0].Usage)
	assert.Equal(t, 4, responses[0].Usage.TotalTokens)
}

func TestGenerate_APIError(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	})

	_, err := collect(t, m, model.Request{Contents: []core.Content{core.NewTextContent("user", "hi")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")
}

func TestBuildMessages_PairsToolResponses(t *testing.T) {
	req := model.Request{Contents: []core.Content{
		core.NewTextContent("user", "price of tesla"),
		{Role: "assistant", Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID: "call_1", Name: "get_ticker", Arguments: `{"company_name":"Tesla"}`,
		}}}},
		{Role: "tool", Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			ID: "call_1", Name: "get_ticker", Response: "TSLA",
		}}}},
		core.NewTextContent("assistant", "TSLA it is"),
	}}

	responses, order := collectToolResponses(req)
	msgs := buildMessages(req, responses, order)
	require.Len(t, msgs, 4)

	require.NotNil(t, msgs[1].OfAssistant)
	assert.Equal(t, "call_1", msgs[1].OfAssistant.ToolCalls[0].ID)
	require.NotNil(t, msgs[2].OfTool)
	assert.Equal(t, "call_1", msgs[2].OfTool.ToolCallID)
	assert.Equal(t, "TSLA", msgs[2].OfTool.Content.OfString.Value)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.Model = "c1/openai/gpt-5/v-20250930"
		o.APIKey = "k"
		o.BaseURL = "https://api.thesys.dev/v1/embed/"
	})
	info := m.Info()
	assert.Equal(t, "openai", info.Provider)
	assert.Equal(t, "c1/openai/gpt-5/v-20250930", info.Name)
	assert.True(t, info.SupportsTools)
}
