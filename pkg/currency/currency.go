// Package currency provides standardized currency handling across the application.
// All monetary amounts are stored as decimal.Decimal to avoid floating-point errors.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents an ISO 4217 currency code.
type Currency string

// Supported currencies.
const (
	TRY Currency = "TRY" // Turkish Lira
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
)

// DefaultCurrency is the default currency when none is specified.
const DefaultCurrency = TRY

// CurrencyInfo contains metadata about a currency.
type CurrencyInfo struct {
	Code          Currency
	Name          string
	Symbol        string
	DecimalPlaces int    // Number of decimal places
	SymbolBefore  bool   // Whether symbol appears before amount
	ThousandsSep  string // Thousands separator
	DecimalSep    string // Decimal separator
}

// currencies maps currency codes to their info.
var currencies = map[Currency]CurrencyInfo{
	TRY: {Code: TRY, Name: "Turkish Lira", Symbol: "TL", DecimalPlaces: 2, SymbolBefore: false, ThousandsSep: ".", DecimalSep: ","},
	USD: {Code: USD, Name: "US Dollar", Symbol: "$", DecimalPlaces: 2, SymbolBefore: true, ThousandsSep: ",", DecimalSep: "."},
	EUR: {Code: EUR, Name: "Euro", Symbol: "€", DecimalPlaces: 2, SymbolBefore: false, ThousandsSep: ".", DecimalSep: ","},
}

// IsValid checks if a currency code is supported.
func IsValid(code string) bool {
	_, ok := currencies[Currency(code)]
	return ok
}

// GetInfo returns metadata for a currency code.
func GetInfo(code Currency) (CurrencyInfo, bool) {
	info, ok := currencies[code]
	return info, ok
}

// Format returns the amount formatted per the currency's separator rules,
// e.g. 17499.9 TRY -> "17.499,90 TL". Alert texts use this form.
func Format(amount decimal.Decimal, code Currency) string {
	info, ok := GetInfo(code)
	if !ok {
		return fmt.Sprintf("%s %s", amount.StringFixed(2), code)
	}

	fixed := amount.StringFixed(int32(info.DecimalPlaces))

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	grouped := groupThousands(intPart, info.ThousandsSep)

	var b strings.Builder
	if negative {
		b.WriteString("-")
	}
	b.WriteString(grouped)
	if fracPart != "" {
		b.WriteString(info.DecimalSep)
		b.WriteString(fracPart)
	}

	if info.SymbolBefore {
		return info.Symbol + b.String()
	}
	return b.String() + " " + info.Symbol
}

// FormatTRY formats an amount in the default lira style.
func FormatTRY(amount decimal.Decimal) string {
	return Format(amount, TRY)
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
