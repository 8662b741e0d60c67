package model

import (
	"strconv"
	"strings"
	"time"
)

// NormalizeTicker canonicalizes a ticker symbol: trimmed, upper-cased.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// assetTypeAliases collapses provider-localized and plural type names onto
// the canonical enum values.
var assetTypeAliases = map[string]string{
	"stock":  "stock",
	"ação":   "stock",
	"acao":   "stock",
	"ações":  "stock",
	"acoes":  "stock",
	"fund":   "fund",
	"fundo":  "fund",
	"fundos": "fund",
	"fii":    "fund",
	"bdr":    "bdr",
	"etf":    "etf",
	"index":  "index",
	"índice": "index",
	"indice": "index",
}

// NormalizeAssetType maps a provider asset-type string onto the canonical
// enum (stock|fund|bdr|etf|index). Unknown values pass through lower-cased;
// empty input stays empty.
func NormalizeAssetType(assetType string) string {
	t := strings.ToLower(strings.TrimSpace(assetType))
	if t == "" {
		return ""
	}
	if canonical, ok := assetTypeAliases[t]; ok {
		return canonical
	}
	return t
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
// Anything above it is treated as milliseconds (≈ year 33658 in seconds).
const epochMillisThreshold = 1e12

// ParseTimestamp converts a provider timestamp into UTC time. Accepted
// shapes: integer/float epoch seconds or milliseconds (disambiguated by
// magnitude) and ISO-8601 strings. Returns false for anything unparseable.
func ParseTimestamp(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case nil:
		return time.Time{}, false
	case float64:
		return fromEpoch(int64(ts)), true
	case int64:
		return fromEpoch(ts), true
	case int:
		return fromEpoch(int64(ts)), true
	case string:
		s := strings.TrimSpace(ts)
		if s == "" {
			return time.Time{}, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpoch(n), true
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), true
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.UTC(), true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func fromEpoch(n int64) time.Time {
	if n > epochMillisThreshold {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// TradingDate truncates a timestamp to its canonical trading date
// (midnight UTC). Bars and dividends are keyed by this value.
func TradingDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
