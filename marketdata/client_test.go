package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeYahoo struct {
	*httptest.Server
	crumbCalls   atomic.Int32
	summaryCalls atomic.Int32
	modules      atomic.Value
}

func newFakeYahoo(t *testing.T, summary string) *fakeYahoo {
	t.Helper()

	f := &fakeYahoo{}
	mux := http.NewServeMux()
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		f.crumbCalls.Add(1)
		if _, err := r.Cookie("A3"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("crumb123"))
	})
	mux.HandleFunc("/v10/finance/quoteSummary/", func(w http.ResponseWriter, r *http.Request) {
		f.summaryCalls.Add(1)
		f.modules.Store(r.URL.Query().Get("modules"))
		if r.URL.Query().Get("crumb") != "crumb123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/v10/finance/quoteSummary/NOPE" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for symbol: NOPE"}}}`))
			return
		}
		_, _ = w.Write([]byte(summary))
	})
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chartPayload))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "Tesla":
			_, _ = w.Write([]byte(`{"quotes":[{"symbol":"TSLA","shortname":"Tesla, Inc."}],"news":[]}`))
		case "AAPL":
			_, _ = w.Write([]byte(`{"quotes":[],"news":[{"title":"Apple ships","publisher":"Wire"}]}`))
		case "down":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"quotes":[],"news":[]}`))
		}
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)

	return f
}

func (f *fakeYahoo) client() *Client {
	return NewClient(func(o *Options) {
		o.QueryURL = f.URL
		o.SearchURL = f.URL + "/search"
		o.CookieURL = f.URL + "/cookie"
	})
}

const chartPayload = `{"chart":{"result":[{
  "timestamp":[1704205800,1704292200],
  "indicators":{"quote":[{"open":[187.15,184.22],"high":[188.44,185.88],"low":[183.89,183.43],"close":[185.64,184.25],"volume":[82488700,58414500]}]},
  "events":{
    "dividends":{"1704292200":{"amount":0.24,"date":1704292200}},
    "splits":{"1598880600":{"date":1598880600,"numerator":4,"denominator":1,"splitRatio":"4:1"}}
  }
}],"error":null}}`

const summaryPayload = `{"quoteSummary":{"result":[{
  "price":{"maxAge":1,"regularMarketPrice":{"raw":189.5,"fmt":"189.50"},"currency":"USD","longName":"Apple Inc."},
  "assetProfile":{"sector":"Technology","fullTimeEmployees":161000,"maxAge":86400},
  "summaryDetail":{"trailingPE":{"raw":29.1,"fmt":"29.10"},"dividendYield":{}},
  "balanceSheetHistory":{"balanceSheetStatements":[
    {"maxAge":1,"endDate":{"raw":1696032000,"fmt":"2023-09-30"},"cash":{"raw":29965000000,"fmt":"29.97B"},"totalAssets":{"raw":352583000000}}
  ]},
  "institutionOwnership":{"ownershipList":[
    {"reportDate":{"raw":1703980800,"fmt":"2023-12-31"},"organization":"Vanguard Group Inc","pctHeld":{"raw":0.0834},"position":{"raw":1299997133},"value":{"raw":250289985205}}
  ]},
  "majorHoldersBreakdown":{"maxAge":1,"insidersPercentHeld":{"raw":0.0007},"institutionsCount":{"raw":6370}},
  "recommendationTrend":{"trend":[{"period":"0m","strongBuy":11,"buy":21,"hold":6,"sell":0,"strongSell":0}]}
}],"error":null}}`

func TestClient_PriceHandshake(t *testing.T) {
	f := newFakeYahoo(t, summaryPayload)
	c := f.client()

	price, err := c.Price(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 189.5, price)
	assert.Equal(t, "price", f.modules.Load())

	_, err = c.Price(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.crumbCalls.Load(), "crumb must be cached")
}

func TestClient_QuoteSummaryError(t *testing.T) {
	c := newFakeYahoo(t, summaryPayload).client()

	_, err := c.Price(context.Background(), "NOPE")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestClient_MissingModuleIsNil(t *testing.T) {
	c := newFakeYahoo(t, summaryPayload).client()

	cf, err := c.CashFlow(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Nil(t, cf)

	holders, err := c.MutualFundHolders(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Nil(t, holders)
}

func TestClient_BalanceSheet(t *testing.T) {
	c := newFakeYahoo(t, summaryPayload).client()

	bs, err := c.BalanceSheet(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Contains(t, bs, "2023-09-30")
	assert.Equal(t, 29965000000.0, bs["2023-09-30"]["cash"])
	assert.NotContains(t, bs["2023-09-30"], "maxAge")
	assert.NotContains(t, bs["2023-09-30"], "endDate")
}

func TestClient_CompanyInfo(t *testing.T) {
	f := newFakeYahoo(t, summaryPayload)

	info, err := f.client().CompanyInfo(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Technology", info["sector"])
	assert.Equal(t, 29.1, info["trailingPE"])
	assert.Equal(t, "Apple Inc.", info["longName"])
	assert.NotContains(t, info, "dividendYield")
	assert.NotContains(t, info, "maxAge")
	assert.Equal(t, "assetProfile,summaryDetail,financialData,defaultKeyStatistics,price,quoteType", f.modules.Load())
}

func TestClient_OwnershipTables(t *testing.T) {
	c := newFakeYahoo(t, summaryPayload).client()

	inst, err := c.InstitutionalHolders(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Vanguard Group Inc", inst["Holder"]["0"])
	assert.Equal(t, 1299997133.0, inst["Shares"]["0"])
	assert.Nil(t, inst["pctChange"]["0"])

	major, err := c.MajorHolders(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0.0007, major["Value"]["insidersPercentHeld"])
	assert.NotContains(t, major["Value"], "maxAge")

	trend, err := c.RecommendationsSummary(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "0m", trend["period"]["0"])
	assert.Equal(t, 21.0, trend["buy"]["0"])
}

func TestClient_History(t *testing.T) {
	c := newFakeYahoo(t, summaryPayload).client()

	hist, err := c.History(context.Background(), "AAPL", "2024-01-01", "2024-01-04")
	require.NoError(t, err)

	day := timeKey(1704292200)
	assert.Equal(t, 184.22, hist["Open"][day])
	assert.Equal(t, 58414500.0, hist["Volume"][day])
	assert.Equal(t, 0.24, hist["Dividends"][day])
	assert.Equal(t, 0.0, hist["Dividends"][timeKey(1704205800)])

	_, err = c.History(context.Background(), "AAPL", "01/01/2024", "")
	assert.Error(t, err)
}

func TestClient_Events(t *testing.T) {
	c := newFakeYahoo(t, summaryPayload).client()

	div, err := c.Dividends(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, Series{timeKey(1704292200): 0.24}, div)

	splits, err := c.Splits(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, Series{timeKey(1598880600): 4.0}, splits)
}

func TestClient_Search(t *testing.T) {
	c := newFakeYahoo(t, summaryPayload).client()

	symbol, err := c.Search(context.Background(), "Tesla")
	require.NoError(t, err)
	assert.Equal(t, "TSLA", symbol)

	_, err = c.Search(context.Background(), "Nothing Corp")
	assert.True(t, errors.Is(err, ErrNoMatch))

	_, err = c.Search(context.Background(), "down")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestClient_News(t *testing.T) {
	c := newFakeYahoo(t, summaryPayload).client()

	news, err := c.News(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, "Apple ships", news[0].(map[string]any)["title"])
}
