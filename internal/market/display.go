package market

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatBRL renders a value as a Brazilian Real currency string, e.g.
// "R$1.234,56". The decimal shift keeps the major->minor unit conversion
// exact for values that are not representable in binary floating point.
func FormatBRL(v float64) string {
	minor := decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
	return money.New(minor, money.BRL).Display()
}

// FormatPercent renders an annual or daily percentage, e.g. "10.40%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// Display picks the formatting rule for a given type: INDEX values are
// percentages, everything else is a currency amount.
func Display(t Type, v float64) string {
	if t == TypeIndex {
		return FormatPercent(v)
	}
	return FormatBRL(v)
}
