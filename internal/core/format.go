package core

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders money for display with a configurable currency symbol
// and locale-aware digit grouping.
type Formatter struct {
	Symbol  string
	printer *message.Printer
}

// NewFormatter builds a Formatter. An unparsable locale falls back to English.
func NewFormatter(symbol, locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Formatter{Symbol: symbol, printer: message.NewPrinter(tag)}
}

// Format renders cents as e.g. "₹1,234.50" or "-₹12.00".
func (f Formatter) Format(m Money) string {
	p := f.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + f.Symbol + p.Sprintf("%.2f", float64(cents)/100.0)
}

// Plain renders cents without a currency symbol, keeping locale grouping.
func (f Formatter) Plain(m Money) string {
	return Formatter{printer: f.printer}.Format(m)
}
