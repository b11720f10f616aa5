package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Provider is the set of market data facets the lookup tools query. A nil
// result with a nil error means the provider has no data for the facet.
type Provider interface {
	Price(ctx context.Context, ticker string) (any, error)
	History(ctx context.Context, ticker, start, end string) (Table, error)
	News(ctx context.Context, ticker string) ([]any, error)
	BalanceSheet(ctx context.Context, ticker string) (Table, error)
	IncomeStatement(ctx context.Context, ticker string) (Table, error)
	CashFlow(ctx context.Context, ticker string) (Table, error)
	CompanyInfo(ctx context.Context, ticker string) (map[string]any, error)
	Dividends(ctx context.Context, ticker string) (Series, error)
	Splits(ctx context.Context, ticker string) (Series, error)
	InstitutionalHolders(ctx context.Context, ticker string) (Table, error)
	MajorHolders(ctx context.Context, ticker string) (Table, error)
	MutualFundHolders(ctx context.Context, ticker string) (Table, error)
	InsiderTransactions(ctx context.Context, ticker string) (Table, error)
	Recommendations(ctx context.Context, ticker string) (Table, error)
	RecommendationsSummary(ctx context.Context, ticker string) (Table, error)
	// Search resolves a company name to the symbol of the first match.
	Search(ctx context.Context, companyName string) (string, error)
}

var _ Provider = (*Client)(nil)

const dateLayout = "2006-01-02"

var (
	holderColumns = []column{
		{"Date Reported", "reportDate"},
		{"Holder", "organization"},
		{"pctHeld", "pctHeld"},
		{"Shares", "position"},
		{"Value", "value"},
		{"pctChange", "pctChange"},
	}

	insiderColumns = []column{
		{"Shares", "shares"},
		{"Value", "value"},
		{"URL", "filerUrl"},
		{"Text", "transactionText"},
		{"Insider", "filerName"},
		{"Position", "filerRelation"},
		{"Transaction", "moneyText"},
		{"Start Date", "startDate"},
		{"Ownership", "ownership"},
	}

	upgradeColumns = []column{
		{"GradeDate", "epochGradeDate"},
		{"Firm", "firm"},
		{"ToGrade", "toGrade"},
		{"FromGrade", "fromGrade"},
		{"Action", "action"},
	}

	trendColumns = []column{
		{"period", "period"},
		{"strongBuy", "strongBuy"},
		{"buy", "buy"},
		{"hold", "hold"},
		{"sell", "sell"},
		{"strongSell", "strongSell"},
	}

	companyInfoModules = []string{"assetProfile", "summaryDetail", "financialData", "defaultKeyStatistics", "price", "quoteType"}
)

// module fetches a single quoteSummary module; a missing module yields a
// non-existent result and no error.
func (c *Client) module(ctx context.Context, ticker, name string) (gjson.Result, error) {
	result, err := c.quoteSummary(ctx, ticker, name)
	if err != nil {
		return gjson.Result{}, err
	}
	return result.Get(name), nil
}

// Price returns price.regularMarketPrice.
func (c *Client) Price(ctx context.Context, ticker string) (any, error) {
	price, err := c.module(ctx, ticker, "price")
	if err != nil {
		return nil, err
	}
	return rawValue(price.Get("regularMarketPrice")), nil
}

// History returns daily OHLCV rows between start and end (YYYY-MM-DD, end
// exclusive). An empty end means now; an empty start means one month before end.
func (c *Client) History(ctx context.Context, ticker, start, end string) (Table, error) {
	endTime := time.Now().UTC()
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", end, err)
		}
		endTime = t
	}

	startTime := endTime.AddDate(0, -1, 0)
	if start != "" {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", start, err)
		}
		startTime = t
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(startTime.Unix(), 10))
	q.Set("period2", strconv.FormatInt(endTime.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")

	result, err := c.chart(ctx, ticker, q)
	if err != nil {
		return nil, err
	}

	table := Table{"Open": {}, "High": {}, "Low": {}, "Close": {}, "Volume": {}, "Dividends": {}, "Stock Splits": {}}
	quote := result.Get("indicators.quote.0")
	dividends := result.Get("events.dividends")
	splits := result.Get("events.splits")

	for i, ts := range result.Get("timestamp").Array() {
		key := timeKey(ts.Int())
		idx := strconv.Itoa(i)
		table["Open"][key] = rawValue(quote.Get("open." + idx))
		table["High"][key] = rawValue(quote.Get("high." + idx))
		table["Low"][key] = rawValue(quote.Get("low." + idx))
		table["Close"][key] = rawValue(quote.Get("close." + idx))
		table["Volume"][key] = rawValue(quote.Get("volume." + idx))
		table["Dividends"][key] = 0.0
		table["Stock Splits"][key] = 0.0

		if d := dividends.Get(ts.String()); d.Exists() {
			table["Dividends"][key] = d.Get("amount").Float()
		}
		if s := splits.Get(ts.String()); s.Exists() {
			table["Stock Splits"][key] = splitRatio(s)
		}
	}

	return table, nil
}

// News returns the raw news items for ticker.
func (c *Client) News(ctx context.Context, ticker string) ([]any, error) {
	result, err := c.search(ctx, ticker, 0, 10)
	if err != nil {
		return nil, err
	}

	news := result.Get("news")
	if !news.Exists() {
		return nil, nil
	}

	items, _ := news.Value().([]any)
	if items == nil {
		items = []any{}
	}

	return items, nil
}

func (c *Client) statement(ctx context.Context, ticker, moduleName, listKey string) (Table, error) {
	m, err := c.module(ctx, ticker, moduleName)
	if err != nil || !m.Exists() {
		return nil, err
	}
	return statementTable(m.Get(listKey)), nil
}

// BalanceSheet returns annual balance sheets keyed by period end date.
func (c *Client) BalanceSheet(ctx context.Context, ticker string) (Table, error) {
	return c.statement(ctx, ticker, "balanceSheetHistory", "balanceSheetStatements")
}

// IncomeStatement returns annual income statements keyed by period end date.
func (c *Client) IncomeStatement(ctx context.Context, ticker string) (Table, error) {
	return c.statement(ctx, ticker, "incomeStatementHistory", "incomeStatementHistory")
}

// CashFlow returns annual cash flow statements keyed by period end date.
func (c *Client) CashFlow(ctx context.Context, ticker string) (Table, error) {
	return c.statement(ctx, ticker, "cashflowStatementHistory", "cashflowStatements")
}

// CompanyInfo merges profile, valuation and key statistics into one flat map.
func (c *Client) CompanyInfo(ctx context.Context, ticker string) (map[string]any, error) {
	result, err := c.quoteSummary(ctx, ticker, companyInfoModules...)
	if err != nil {
		return nil, err
	}

	modules := make([]gjson.Result, 0, len(companyInfoModules))
	for _, name := range companyInfoModules {
		modules = append(modules, result.Get(name))
	}

	info := flatten(modules...)
	if len(info) == 0 {
		return nil, nil
	}

	return info, nil
}

func (c *Client) events(ctx context.Context, ticker, kind string, value func(gjson.Result) any) (Series, error) {
	q := url.Values{}
	q.Set("range", "max")
	q.Set("interval", "1d")
	q.Set("events", kind)

	result, err := c.chart(ctx, ticker, q)
	if err != nil {
		return nil, err
	}

	path := "events.dividends"
	if kind == "splits" {
		path = "events.splits"
	}

	series := Series{}
	result.Get(path).ForEach(func(_, ev gjson.Result) bool {
		series[timeKey(ev.Get("date").Int())] = value(ev)
		return true
	})

	return series, nil
}

// Dividends returns the dividend amounts keyed by payment date.
func (c *Client) Dividends(ctx context.Context, ticker string) (Series, error) {
	return c.events(ctx, ticker, "div", func(ev gjson.Result) any { return ev.Get("amount").Float() })
}

// Splits returns split ratios keyed by split date.
func (c *Client) Splits(ctx context.Context, ticker string) (Series, error) {
	return c.events(ctx, ticker, "splits", func(ev gjson.Result) any { return splitRatio(ev) })
}

func (c *Client) records(ctx context.Context, ticker, moduleName, listKey string, cols []column) (Table, error) {
	m, err := c.module(ctx, ticker, moduleName)
	if err != nil || !m.Exists() {
		return nil, err
	}
	return recordsTable(m.Get(listKey), cols), nil
}

// InstitutionalHolders returns the top institutional owners.
func (c *Client) InstitutionalHolders(ctx context.Context, ticker string) (Table, error) {
	return c.records(ctx, ticker, "institutionOwnership", "ownershipList", holderColumns)
}

// MutualFundHolders returns the top mutual fund owners.
func (c *Client) MutualFundHolders(ctx context.Context, ticker string) (Table, error) {
	return c.records(ctx, ticker, "fundOwnership", "ownershipList", holderColumns)
}

// InsiderTransactions returns reported insider buys and sells.
func (c *Client) InsiderTransactions(ctx context.Context, ticker string) (Table, error) {
	return c.records(ctx, ticker, "insiderTransactions", "transactions", insiderColumns)
}

// Recommendations returns the analyst upgrade/downgrade history.
func (c *Client) Recommendations(ctx context.Context, ticker string) (Table, error) {
	return c.records(ctx, ticker, "upgradeDowngradeHistory", "history", upgradeColumns)
}

// RecommendationsSummary returns the recommendation trend per period.
func (c *Client) RecommendationsSummary(ctx context.Context, ticker string) (Table, error) {
	return c.records(ctx, ticker, "recommendationTrend", "trend", trendColumns)
}

// MajorHolders returns the ownership breakdown as a single "Value" column.
func (c *Client) MajorHolders(ctx context.Context, ticker string) (Table, error) {
	m, err := c.module(ctx, ticker, "majorHoldersBreakdown")
	if err != nil || !m.Exists() {
		return nil, err
	}

	values := map[string]any{}
	m.ForEach(func(key, value gjson.Result) bool {
		if key.String() != "maxAge" {
			values[key.String()] = rawValue(value)
		}
		return true
	})

	return Table{"Value": values}, nil
}

// Search resolves a company name to the first matching symbol.
func (c *Client) Search(ctx context.Context, companyName string) (string, error) {
	result, err := c.search(ctx, companyName, 6, 0)
	if err != nil {
		return "", err
	}

	symbol := result.Get("quotes.0.symbol")
	if !symbol.Exists() || symbol.String() == "" {
		return "", fmt.Errorf("%w for %q", ErrNoMatch, companyName)
	}

	return symbol.String(), nil
}

func splitRatio(ev gjson.Result) float64 {
	num, den := ev.Get("numerator").Float(), ev.Get("denominator").Float()
	if den == 0 {
		return 0
	}
	return num / den
}
