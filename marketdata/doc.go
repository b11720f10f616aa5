// Package marketdata is a client for the public Yahoo Finance endpoints.
//
// It covers the three endpoint families the lookup tools need:
//   - quoteSummary (statements, profile, ownership, recommendations), which
//     requires a cookie/crumb handshake performed lazily on first use
//   - chart (daily OHLCV history, dividend and split events)
//   - search (symbol resolution and news)
//
// Results are returned as plain nested maps shaped like a column oriented
// table dump: Table maps column -> index -> value, Series maps index -> value.
// Numeric Yahoo values of the form {"raw": 1.5, "fmt": "1.50"} are unwrapped
// to their raw value.
package marketdata
