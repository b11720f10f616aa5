package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultQueryURL hosts the quoteSummary, chart and crumb endpoints.
	DefaultQueryURL = "https://query2.finance.yahoo.com"
	// DefaultSearchURL is the symbol search endpoint.
	DefaultSearchURL = "https://query2.finance.yahoo.com/v1/finance/search"
	// DefaultCookieURL hands out the session cookie the crumb is bound to.
	DefaultCookieURL = "https://fc.yahoo.com"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var (
	// ErrNoMatch is returned when a symbol search yields no quotes.
	ErrNoMatch = errors.New("no matching symbol")
	// ErrNoCrumb is returned when the crumb handshake fails.
	ErrNoCrumb = errors.New("unable to obtain crumb")
)

// StatusError reports a non-200 response from Yahoo.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("yahoo returned status %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	QueryURL  string
	SearchURL string
	CookieURL string
	UserAgent string
	// HTTPClient overrides the default client. Its transport is used as is.
	HTTPClient *http.Client
}

// Client queries Yahoo Finance. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	queryURL   string
	searchURL  string
	cookieURL  string
	userAgent  string

	mu    sync.Mutex
	crumb string
}

// NewClient creates a Client. Outbound requests are traced with otelhttp and
// carry a cookie jar for the crumb handshake.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		QueryURL:  DefaultQueryURL,
		SearchURL: DefaultSearchURL,
		CookieURL: DefaultCookieURL,
		UserAgent: defaultUserAgent,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, _ := cookiejar.New(nil) // never fails without options
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Jar:       jar,
		}
	}

	return &Client{
		httpClient: httpClient,
		queryURL:   strings.TrimRight(opts.QueryURL, "/"),
		searchURL:  opts.SearchURL,
		cookieURL:  opts.CookieURL,
		userAgent:  opts.UserAgent,
	}
}

// get performs a GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	return body, nil
}

// getCrumb returns the cached crumb, performing the cookie/crumb handshake
// on first use.
func (c *Client) getCrumb(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.crumb != "" {
		return c.crumb, nil
	}

	// The cookie endpoint answers with an error status but still sets the cookie.
	if req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, nil); err == nil {
		req.Header.Set("User-Agent", c.userAgent)
		if resp, err := c.httpClient.Do(req); err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	body, err := c.get(ctx, c.queryURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCrumb, err)
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<{") {
		return "", ErrNoCrumb
	}

	c.crumb = crumb

	return crumb, nil
}

func (c *Client) resetCrumb() {
	c.mu.Lock()
	c.crumb = ""
	c.mu.Unlock()
}

// quoteSummary fetches the given modules and returns the first result object.
func (c *Client) quoteSummary(ctx context.Context, ticker string, modules ...string) (gjson.Result, error) {
	crumb, err := c.getCrumb(ctx)
	if err != nil {
		return gjson.Result{}, err
	}

	q := url.Values{}
	q.Set("modules", strings.Join(modules, ","))
	q.Set("crumb", crumb)

	body, err := c.get(ctx, c.queryURL+"/v10/finance/quoteSummary/"+url.PathEscape(ticker)+"?"+q.Encode())
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
			c.resetCrumb()
		}
		return gjson.Result{}, err
	}

	if desc := gjson.GetBytes(body, "quoteSummary.error.description"); desc.Exists() && desc.String() != "" {
		return gjson.Result{}, fmt.Errorf("quote summary for %s: %s", ticker, desc.String())
	}

	result := gjson.GetBytes(body, "quoteSummary.result.0")
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("quote summary for %s: empty result", ticker)
	}

	return result, nil
}

// chart fetches the v8 chart result for ticker.
func (c *Client) chart(ctx context.Context, ticker string, q url.Values) (gjson.Result, error) {
	body, err := c.get(ctx, c.queryURL+"/v8/finance/chart/"+url.PathEscape(ticker)+"?"+q.Encode())
	if err != nil {
		return gjson.Result{}, err
	}

	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return gjson.Result{}, fmt.Errorf("chart for %s: %s", ticker, desc.String())
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("chart for %s: empty result", ticker)
	}

	return result, nil
}

// search queries the symbol search endpoint.
func (c *Client) search(ctx context.Context, query string, quotes, news int) (gjson.Result, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("quotesCount", fmt.Sprint(quotes))
	q.Set("newsCount", fmt.Sprint(news))

	sep := "?"
	if strings.Contains(c.searchURL, "?") {
		sep = "&"
	}

	body, err := c.get(ctx, c.searchURL+sep+q.Encode())
	if err != nil {
		return gjson.Result{}, err
	}

	return gjson.ParseBytes(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
