package unified

import "github.com/shopspring/decimal"

// usdRates is the static currency-to-USD multiplier table. Growth and ranking
// comparisons depend on a stable rate, so this table is the only conversion
// source in the codebase.
var usdRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"PHP": decimal.RequireFromString("0.018"),
	"SGD": decimal.RequireFromString("0.74"),
	"MYR": decimal.RequireFromString("0.21"),
	"IDR": decimal.RequireFromString("0.000063"),
}

// USDRate returns the conversion multiplier for a currency code. Unknown codes
// fall back to 1, treating the native amount as already USD.
func USDRate(currencyCode string) decimal.Decimal {
	if rate, ok := usdRates[currencyCode]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// ToUSD converts a native amount to USD using the static rate table.
func ToUSD(amount decimal.Decimal, currencyCode string) decimal.Decimal {
	return amount.Mul(USDRate(currencyCode))
}
