package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/marketinsight"
	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/model"
	"github.com/hupe1980/marketinsight/tool"
)

func TestChat_ClientDisconnectKeepsThreadConsistent(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	price := tool.NewFunctionTool("get_stock_price", "price", nil,
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			close(started)
			select {
			case <-release:
				return 101.25, nil
			case <-tc.Context().Done():
				return nil, tc.Context().Err()
			}
		})

	llm := model.NewMockModel("mock", "mock")
	llm.AddTurn(model.Response{
		FinishReason: "tool_calls",
		Content: core.Content{Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID: "call_1", Name: "get_stock_price", Arguments: `{"ticker":"MSFT"}`,
		}}}},
	})
	llm.AddTurn(model.Response{FinishReason: "stop", Content: core.NewTextContent("assistant", "MSFT trades at 101.25")})

	analyst := marketinsight.New(llm, func(o *marketinsight.Options) {
		o.EnableStreaming = false
		o.Tools = []tool.Tool{price}
	})

	s, _ := newTestServer(t, analyst)

	reqCtx := make(chan context.Context, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqCtx <- r.Context()
		s.ServeHTTP(w, r)
	}))
	defer ts.Close()

	clientCtx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(clientCtx, http.MethodPost, ts.URL+"/api/chat", strings.NewReader(validBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
		}
	}()

	<-started
	cancel()

	select {
	case <-(<-reqCtx).Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not observe the disconnect")
	}
	close(release)

	require.Eventually(t, func() bool {
		history, err := analyst.History("t-42")
		return err == nil && len(history) == 4
	}, 5*time.Second, 10*time.Millisecond)

	history, err := analyst.History("t-42")
	require.NoError(t, err)
	require.Len(t, history[1].GetFunctionCalls(), 1)
	require.Len(t, history[2].GetFunctionResponses(), 1)
	assert.Equal(t, "call_1", history[2].GetFunctionResponses()[0].ID)
	assert.Equal(t, 101.25, history[2].GetFunctionResponses()[0].Response)
	assert.Equal(t, "MSFT trades at 101.25", history[3].Text())
}
