// Package format renders prices for display.
package format

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// zero-decimal currencies
var wholeUnits = map[string]bool{
	"JPY": true,
	"KRW": true,
}

// Money formats an amount in currency units with thousands grouping.
// Example: Money(1234.5, "USD") => "$1,234.50"
func Money(amount float64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	decimals := 2
	if wholeUnits[currency] {
		decimals = 0
	}
	amount = round(amount, decimals)

	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := printer.Sprintf("%.2f", amount)
	if decimals == 0 {
		digits = printer.Sprintf("%.0f", amount)
	}

	var out string
	if sym, ok := symbols[currency]; ok {
		out = sym + digits
	} else {
		out = fmt.Sprintf("%s %s", currency, digits)
	}
	if neg {
		return "-" + out
	}
	return out
}

// Decimal renders amount with exactly two decimals and no grouping, the form
// used in data attributes and analytics payloads.
func Decimal(amount float64) string {
	return fmt.Sprintf("%.2f", round(amount, 2))
}

// Quantity renders the "name (xN)" label of a summary line.
func Quantity(name string, quantity int) string {
	return fmt.Sprintf("%s (x%d)", name, quantity)
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}
