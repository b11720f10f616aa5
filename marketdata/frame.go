package marketdata

import (
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Table is a column oriented dump: column -> index -> value.
type Table map[string]map[string]any

// Series is an indexed dump: index -> value.
type Series map[string]any

// column maps a Yahoo record field to a table column.
type column struct {
	name string
	path string
}

// rawValue unwraps {"raw": x, "fmt": "..."} objects. Empty objects count as missing.
func rawValue(r gjson.Result) any {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}

	if r.IsObject() {
		if raw := r.Get("raw"); raw.Exists() {
			return raw.Value()
		}
		if len(r.Map()) == 0 {
			return nil
		}
	}

	return r.Value()
}

// recordsTable turns a list of records into a table indexed by position.
func recordsTable(list gjson.Result, cols []column) Table {
	table := make(Table, len(cols))
	for _, c := range cols {
		table[c.name] = map[string]any{}
	}

	for i, rec := range list.Array() {
		idx := strconv.Itoa(i)
		for _, c := range cols {
			table[c.name][idx] = rawValue(rec.Get(c.path))
		}
	}

	return table
}

// statementTable turns a list of periodic statements into a table with one
// column per period end date and one row per line item.
func statementTable(list gjson.Result) Table {
	table := Table{}

	for _, st := range list.Array() {
		period := st.Get("endDate.fmt").String()
		if period == "" {
			period = timeKey(st.Get("endDate.raw").Int())
		}

		row := map[string]any{}
		st.ForEach(func(key, value gjson.Result) bool {
			switch key.String() {
			case "maxAge", "endDate":
			default:
				row[key.String()] = rawValue(value)
			}
			return true
		})

		table[period] = row
	}

	return table
}

// flatten merges the fields of several quoteSummary modules into one map.
func flatten(modules ...gjson.Result) map[string]any {
	out := map[string]any{}

	for _, m := range modules {
		m.ForEach(func(key, value gjson.Result) bool {
			if key.String() == "maxAge" {
				return true
			}
			if v := rawValue(value); v != nil {
				out[key.String()] = v
			}
			return true
		})
	}

	return out
}

// timeKey formats a unix timestamp as an RFC 3339 UTC index key.
func timeKey(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}
