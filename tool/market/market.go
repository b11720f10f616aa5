package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/marketinsight/core"
	"github.com/hupe1980/marketinsight/logging"
	"github.com/hupe1980/marketinsight/marketdata"
	"github.com/hupe1980/marketinsight/tool"
)

const (
	// InvalidTicker is returned for an empty or non-string ticker.
	InvalidTicker = "Error: Invalid ticker provided. Please provide a valid ticker symbol."
	// InvalidCompanyName is returned for an empty or non-string company name.
	InvalidCompanyName = "Error: Invalid company name provided. Please provide a valid company name."
)

// TickerArgs is the argument shape shared by the per-ticker tools.
type TickerArgs struct {
	Ticker string `json:"ticker" jsonschema:"description=Stock ticker symbol such as AAPL"`
}

// HistoryArgs is the argument shape of get_historical_data.
type HistoryArgs struct {
	Ticker    string `json:"ticker" jsonschema:"description=Stock ticker symbol such as AAPL"`
	StartDate string `json:"start_date" jsonschema:"description=Start date in YYYY-MM-DD format"`
	EndDate   string `json:"end_date" jsonschema:"description=End date in YYYY-MM-DD format"`
}

// CompanyArgs is the argument shape of get_ticker.
type CompanyArgs struct {
	CompanyName string `json:"company_name" jsonschema:"description=Company name such as Tesla"`
}

// facet names one kind of lookup. Title is used in logs, the lower case
// form in messages returned to the model.
type facet string

func (f facet) lower() string { return strings.ToLower(string(f)) }

func (f facet) failure() string {
	return fmt.Sprintf("Error: Failed to retrieve %s. Please try again later.", f.lower())
}

func (f facet) missing(ticker string) string {
	return fmt.Sprintf("No %s available for %s", f.lower(), ticker)
}

// toolset binds the lookup tools to a provider and logger.
type toolset struct {
	provider marketdata.Provider
	logger   logging.Logger
}

// Options configures the tool set.
type Options struct {
	// Logger receives the per-call logs; defaults to the "Tools" component logger.
	Logger logging.Logger
}

// NewTools returns the 16 lookup tools backed by provider.
func NewTools(provider marketdata.Provider, optFns ...func(o *Options)) []tool.Tool {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Named("Tools")
	}

	ts := &toolset{provider: provider, logger: opts.Logger}
	p := provider

	return []tool.Tool{
		ts.tickerTool("get_stock_price", "A function that returns the current stock price of a given ticker",
			"Stock Price", func(ctx context.Context, t string) (any, error) { return p.Price(ctx, t) }),
		tool.NewFunctionToolFromStruct("get_historical_data",
			"A function that returns the historical data of a given ticker in the given start and end date",
			HistoryArgs{}, ts.historicalData),
		ts.tickerTool("get_stock_news", "A function that returns the news of a given ticker",
			"News", func(ctx context.Context, t string) (any, error) { return p.News(ctx, t) }),
		ts.tickerTool("get_balance_sheet", "A function that returns the balance sheet of a given ticker",
			"Balance Sheet", func(ctx context.Context, t string) (any, error) { return p.BalanceSheet(ctx, t) }),
		ts.tickerTool("get_income_statement", "A function that returns the income statement of a given ticker",
			"Income Statement", func(ctx context.Context, t string) (any, error) { return p.IncomeStatement(ctx, t) }),
		ts.tickerTool("get_cash_flow", "A function that returns the cash flow statement of a given ticker",
			"Cash Flow", func(ctx context.Context, t string) (any, error) { return p.CashFlow(ctx, t) }),
		ts.tickerTool("get_company_info", "A function that returns company profile and key financial ratios",
			"Company Info", func(ctx context.Context, t string) (any, error) { return p.CompanyInfo(ctx, t) }),
		ts.tickerTool("get_dividends", "A function that returns the dividend payment history of a given ticker",
			"Dividends", func(ctx context.Context, t string) (any, error) { return p.Dividends(ctx, t) }),
		ts.tickerTool("get_splits", "A function that returns the stock split history of a given ticker",
			"Stock Splits", func(ctx context.Context, t string) (any, error) { return p.Splits(ctx, t) }),
		ts.tickerTool("get_institutional_holders", "A function that returns the institutional ownership data of a given ticker",
			"Institutional Holders", func(ctx context.Context, t string) (any, error) { return p.InstitutionalHolders(ctx, t) }),
		ts.tickerTool("get_major_shareholders", "A function that returns the major share holder data of a given ticker",
			"Major Share Holders", func(ctx context.Context, t string) (any, error) { return p.MajorHolders(ctx, t) }),
		ts.tickerTool("get_mutual_fund_holders", "A function that returns the mutual fund ownership data of a given ticker",
			"Mutual Fund Holders", func(ctx context.Context, t string) (any, error) { return p.MutualFundHolders(ctx, t) }),
		ts.tickerTool("get_insider_transactions", "A function that returns the insider buy/sell transactions of a given ticker",
			"Insider Transactions", func(ctx context.Context, t string) (any, error) { return p.InsiderTransactions(ctx, t) }),
		ts.tickerTool("get_analyst_recommendations", "A function that returns the analyst recommendations of a given ticker",
			"Analyst Recommendations", func(ctx context.Context, t string) (any, error) { return p.Recommendations(ctx, t) }),
		ts.tickerTool("get_analyst_recommendations_summary", "A function that returns the analyst recommendations summary of a given ticker",
			"Analyst Recommendations Summary", func(ctx context.Context, t string) (any, error) { return p.RecommendationsSummary(ctx, t) }),
		tool.NewFunctionToolFromStruct("get_ticker", "A function that returns the ticker/symbol of a given company",
			CompanyArgs{}, ts.ticker),
	}
}

// tickerTool builds a single-argument lookup tool around fetch.
func (ts *toolset) tickerTool(name, description string, f facet, fetch func(ctx context.Context, ticker string) (any, error)) tool.Tool {
	return tool.NewFunctionToolFromStruct(name, description, TickerArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return ts.lookup(tc.Context(), f, args["ticker"], fetch), nil
		})
}

// lookup runs one timed provider query and converts every failure into an
// in-band string.
func (ts *toolset) lookup(ctx context.Context, f facet, rawTicker any, fetch func(ctx context.Context, ticker string) (any, error)) any {
	ts.logger.Info(fmt.Sprintf("Retrieving %s of %v", f, display(rawTicker)))

	ticker, ok := rawTicker.(string)
	if !ok || ticker == "" {
		return InvalidTicker
	}

	start := time.Now()

	result, err := fetch(ctx, ticker)
	if err != nil {
		ts.logger.Error(fmt.Sprintf("Failed to retrieve %s of %s: %s", f.lower(), ticker, err))
		return f.failure()
	}

	if isEmpty(result) {
		return f.missing(ticker)
	}

	ts.logger.Info(fmt.Sprintf("Retrieved %s of %s in %.3f seconds", f, ticker, time.Since(start).Seconds()))

	return result
}

func (ts *toolset) historicalData(tc *core.ToolContext, args map[string]any) (any, error) {
	start, _ := args["start_date"].(string)
	end, _ := args["end_date"].(string)

	return ts.lookup(tc.Context(), "Historical Data", args["ticker"], func(ctx context.Context, ticker string) (any, error) {
		return ts.provider.History(ctx, ticker, start, end)
	}), nil
}

func (ts *toolset) ticker(tc *core.ToolContext, args map[string]any) (any, error) {
	const f facet = "Ticker"

	raw := args["company_name"]
	ts.logger.Info(fmt.Sprintf("Retrieving %s of %v", f, display(raw)))

	name, ok := raw.(string)
	if !ok || name == "" {
		return InvalidCompanyName, nil
	}

	start := time.Now()

	symbol, err := ts.provider.Search(tc.Context(), name)
	if err != nil {
		ts.logger.Error(fmt.Sprintf("Failed to retrieve %s of %s: %s", f.lower(), name, err))
		return f.failure(), nil
	}

	ts.logger.Info(fmt.Sprintf("Retrieved %s of %s in %.3f seconds", f, name, time.Since(start).Seconds()))

	return symbol, nil
}

// isEmpty reports a nil result, including typed nil maps and slices.
func isEmpty(v any) bool {
	switch r := v.(type) {
	case nil:
		return true
	case marketdata.Table:
		return r == nil
	case marketdata.Series:
		return r == nil
	case map[string]any:
		return r == nil
	case []any:
		return r == nil
	default:
		return false
	}
}

func display(v any) any {
	if v == nil {
		return "None"
	}
	return v
}
