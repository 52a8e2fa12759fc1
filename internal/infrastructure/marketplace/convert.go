package marketplace

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// jsonMoney is the {Amount, CurrencyCode} object some marketplaces embed in
// JSONB columns. Amount arrives as a string.
type jsonMoney struct {
	Amount       string `json:"Amount"`
	CurrencyCode string `json:"CurrencyCode"`
}

// decodeMoney parses a raw JSONB money object. A null column or a malformed
// payload yields a zero amount and empty currency rather than an error; the
// caller decides whether a zero total is acceptable.
func decodeMoney(raw json.RawMessage) (decimal.Decimal, string) {
	if len(raw) == 0 {
		return decimal.Zero, ""
	}
	var m jsonMoney
	if err := json.Unmarshal(raw, &m); err != nil {
		return decimal.Zero, ""
	}
	return parseAmount(m.Amount), m.CurrencyCode
}

// parseAmount parses a decimal string, treating empty or malformed input
// as zero.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// epochTime converts a unix-seconds timestamp to UTC. Zero and negative
// values map to nil, matching the convention of the raw feeds where 0 means
// "not yet happened".
func epochTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// utcPtr normalizes an optional timestamp to UTC.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// coalesceTime returns the first timestamp if present, the fallback otherwise.
func coalesceTime(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return t.UTC()
	}
	return fallback.UTC()
}

// coalesceString returns the dereferenced string if present and non-empty.
func coalesceString(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
