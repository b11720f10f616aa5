// Package market provides the market data lookup tools exposed to the
// analyst agent.
//
// Every tool takes a ticker (get_ticker takes a company name), queries
// exactly one facet of a marketdata.Provider and returns the provider's
// result as plain nested maps. Failures never escape as Go errors: invalid
// input, provider errors and missing data are reported in-band as strings
// the model can read ("Error: ..." or "No ... available for ...").
package market
