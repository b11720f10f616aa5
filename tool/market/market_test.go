package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/logging"
	"github.com/hupe1980/marketinsight/marketdata"
	"github.com/hupe1980/marketinsight/session"
	"github.com/hupe1980/marketinsight/tool"
)

type logLine struct{ level, msg string }

type recordingLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level, msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *recordingLogger) has(level, prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if line.level == level && strings.HasPrefix(line.msg, prefix) {
			return true
		}
	}
	return false
}

// fakeProvider answers every facet with a fixed value, an error or nil.
type fakeProvider struct {
	err   error
	empty bool
	calls int
	last  []string
}

func (f *fakeProvider) record(args ...string) error {
	f.calls++
	f.last = args
	return f.err
}

func (f *fakeProvider) table(ticker string) (marketdata.Table, error) {
	if err := f.record(ticker); err != nil || f.empty {
		return nil, err
	}
	return marketdata.Table{"col": {"0": ticker}}, nil
}

func (f *fakeProvider) Price(_ context.Context, t string) (any, error) {
	if err := f.record(t); err != nil || f.empty {
		return nil, err
	}
	return 189.5, nil
}

func (f *fakeProvider) History(_ context.Context, t, start, end string) (marketdata.Table, error) {
	if err := f.record(t, start, end); err != nil || f.empty {
		return nil, err
	}
	return marketdata.Table{"Close": {"2024-01-02T00:00:00Z": 185.64}}, nil
}

func (f *fakeProvider) News(_ context.Context, t string) ([]any, error) {
	if err := f.record(t); err != nil || f.empty {
		return nil, err
	}
	return []any{map[string]any{"title": "headline"}}, nil
}

func (f *fakeProvider) BalanceSheet(_ context.Context, t string) (marketdata.Table, error) {
	return f.table(t)
}

func (f *fakeProvider) IncomeStatement(_ context.Context, t string) (marketdata.Table, error) {
	return f.table(t)
}

func (f *fakeProvider) CashFlow(_ context.Context, t string) (marketdata.Table, error) {
	return f.table(t)
}

func (f *fakeProvider) CompanyInfo(_ context.Context, t string) (map[string]any, error) {
	if err := f.record(t); err != nil || f.empty {
		return nil, err
	}
	return map[string]any{"sector": "Technology"}, nil
}

func (f *fakeProvider) Dividends(_ context.Context, t string) (marketdata.Series, error) {
	if err := f.record(t); err != nil || f.empty {
		return nil, err
	}
	return marketdata.Series{"2024-02-09T00:00:00Z": 0.24}, nil
}

func (f *fakeProvider) Splits(_ context.Context, t string) (marketdata.Series, error) {
	if err := f.record(t); err != nil || f.empty {
		return nil, err
	}
	return marketdata.Series{}, nil
}

func (f *fakeProvider) InstitutionalHolders(_ context.Context, t string) (marketdata.Table, error) {
	return f.table(t)
}

func (f *fakeProvider) MajorHolders(_ context.Context, t string) (marketdata.Table, error) {
	return f.table(t)
}

func (f *fakeProvider) MutualFundHolders(_ context.Context, t string) (marketdata.Table, error) {
	return f.table(t)
}

func (f *fakeProvider) InsiderTransactions(_ context.Context, t string) (marketdata.Table, error) {
	return f.table(t)
}

func (f *fakeProvider) Recommendations(_ context.Context, t string) (marketdata.Table, error) {
	return f.table(t)
}

func (f *fakeProvider) RecommendationsSummary(_ context.Context, t string) (marketdata.Table, error) {
	return f.table(t)
}

func (f *fakeProvider) Search(_ context.Context, name string) (string, error) {
	if err := f.record(name); err != nil {
		return "", err
	}
	return "TSLA", nil
}

var facets = map[string]string{
	"get_stock_price":                     "stock price",
	"get_historical_data":                 "historical data",
	"get_stock_news":                      "news",
	"get_balance_sheet":                   "balance sheet",
	"get_income_statement":                "income statement",
	"get_cash_flow":                       "cash flow",
	"get_company_info":                    "company info",
	"get_dividends":                       "dividends",
	"get_splits":                          "stock splits",
	"get_institutional_holders":           "institutional holders",
	"get_major_shareholders":              "major share holders",
	"get_mutual_fund_holders":             "mutual fund holders",
	"get_insider_transactions":            "insider transactions",
	"get_analyst_recommendations":         "analyst recommendations",
	"get_analyst_recommendations_summary": "analyst recommendations summary",
}

func newToolContext() *core.ToolContext {
	store := session.NewInMemoryStore()
	sess, _ := store.Get("thread")
	rc := core.NewRunContext(context.Background(), "thread", "run", core.AgentInfo{Name: "analyst"},
		core.NewTextContent("user", "hi"), 0, nil, nil, sess, store, logging.NoOpLogger{})
	return core.NewToolContext(rc, "fc")
}

func toolsByName(p marketdata.Provider, logger logging.Logger) map[string]tool.Tool {
	out := map[string]tool.Tool{}
	for _, t := range NewTools(p, func(o *Options) { o.Logger = logger }) {
		out[t.Name()] = t
	}
	return out
}

func call(t *testing.T, tl tool.Tool, args map[string]any) any {
	t.Helper()
	result, err := tl.Call(newToolContext(), args)
	require.NoError(t, err, "tools never return Go errors")
	return result
}

func TestNewTools_Catalog(t *testing.T) {
	tools := NewTools(&fakeProvider{})
	require.Len(t, tools, 16)

	byName := toolsByName(&fakeProvider{}, logging.NoOpLogger{})
	for name := range facets {
		require.Contains(t, byName, name)
		props := byName[name].Parameters()["properties"].(map[string]any)
		assert.Contains(t, props, "ticker", name)
	}

	require.Contains(t, byName, "get_ticker")
	assert.Equal(t, "A function that returns the ticker/symbol of a given company", byName["get_ticker"].Description())
	assert.Equal(t, "A function that returns the current stock price of a given ticker", byName["get_stock_price"].Description())

	histProps := byName["get_historical_data"].Parameters()["properties"].(map[string]any)
	assert.Contains(t, histProps, "start_date")
	assert.Contains(t, histProps, "end_date")
}

func TestTools_InvalidTicker(t *testing.T) {
	provider := &fakeProvider{}
	byName := toolsByName(provider, logging.NoOpLogger{})

	for name := range facets {
		for _, bad := range []any{nil, "", 42.0, []any{"AAPL"}} {
			assert.Equal(t, InvalidTicker, call(t, byName[name], map[string]any{"ticker": bad}), name)
		}
	}
	assert.Zero(t, provider.calls, "invalid input must not reach the provider")

	assert.Equal(t, InvalidCompanyName, call(t, byName["get_ticker"], map[string]any{"company_name": ""}))
	assert.Equal(t, InvalidCompanyName, call(t, byName["get_ticker"], map[string]any{}))
	assert.Zero(t, provider.calls)
}

func TestTools_ProviderFailure(t *testing.T) {
	logger := &recordingLogger{}
	byName := toolsByName(&fakeProvider{err: errors.New("connection reset")}, logger)

	for name, f := range facets {
		got := call(t, byName[name], map[string]any{"ticker": "AAPL"})
		assert.Equal(t, fmt.Sprintf("Error: Failed to retrieve %s. Please try again later.", f), got, name)
		assert.True(t, logger.has("error", fmt.Sprintf("Failed to retrieve %s of AAPL: connection reset", f)), name)
	}

	assert.Equal(t, "Error: Failed to retrieve ticker. Please try again later.",
		call(t, byName["get_ticker"], map[string]any{"company_name": "Tesla"}))
}

func TestTools_MissingData(t *testing.T) {
	byName := toolsByName(&fakeProvider{empty: true}, logging.NoOpLogger{})

	for name, f := range facets {
		got := call(t, byName[name], map[string]any{"ticker": "AAPL"})
		assert.Equal(t, fmt.Sprintf("No %s available for AAPL", f), got, name)
	}
}

func TestTools_Success(t *testing.T) {
	logger := &recordingLogger{}
	provider := &fakeProvider{}
	byName := toolsByName(provider, logger)

	assert.Equal(t, 189.5, call(t, byName["get_stock_price"], map[string]any{"ticker": "AAPL"}))
	assert.True(t, logger.has("info", "Retrieving Stock Price of AAPL"))
	assert.True(t, logger.has("info", "Retrieved Stock Price of AAPL in "))

	hist := call(t, byName["get_historical_data"], map[string]any{"ticker": "AAPL", "start_date": "2024-01-01", "end_date": "2024-01-31"})
	assert.Equal(t, marketdata.Table{"Close": {"2024-01-02T00:00:00Z": 185.64}}, hist)
	assert.Equal(t, []string{"AAPL", "2024-01-01", "2024-01-31"}, provider.last)

	assert.Equal(t, marketdata.Series{}, call(t, byName["get_splits"], map[string]any{"ticker": "AAPL"}),
		"an empty result is data, not a missing result")

	info := call(t, byName["get_company_info"], map[string]any{"ticker": "AAPL"})
	assert.Equal(t, map[string]any{"sector": "Technology"}, info)
}

func TestTools_NoCaching(t *testing.T) {
	provider := &fakeProvider{}
	price := toolsByName(provider, logging.NoOpLogger{})["get_stock_price"]

	call(t, price, map[string]any{"ticker": "AAPL"})
	call(t, price, map[string]any{"ticker": "AAPL"})
	assert.Equal(t, 2, provider.calls)
}

func TestGetTicker_AgainstSearchEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Tesla" {
			_, _ = w.Write([]byte(`{"quotes":[{"symbol":"TSLA"}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := marketdata.NewClient(func(o *marketdata.Options) { o.SearchURL = srv.URL })
	getTicker := toolsByName(client, logging.NoOpLogger{})["get_ticker"]

	assert.Equal(t, "TSLA", call(t, getTicker, map[string]any{"company_name": "Tesla"}))
	assert.Equal(t, "Error: Failed to retrieve ticker. Please try again later.",
		call(t, getTicker, map[string]any{"company_name": "Unknown"}))
}
