package common

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is rendered for missing prices and numbers.
const Placeholder = "N/A"

// Formatter renders prices and numbers for one currency and locale.
// The zero value is not usable; build one with NewFormatter.
type Formatter struct {
	currency string
	money    *money.Formatter
	printer  *message.Printer
}

// NewFormatter creates a formatter for an ISO 4217 currency code and a BCP 47
// locale. Prices always render with zero fractional digits.
// Unknown currencies fall back to "<CODE> 1,234".
func NewFormatter(currency, locale string) *Formatter {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = money.KRW
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Korean
	}

	f := &Formatter{
		currency: code,
		printer:  message.NewPrinter(tag),
	}
	if cur := money.GetCurrency(code); cur != nil {
		f.money = money.NewFormatter(0, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
	}
	return f
}

// Currency returns the currency code the formatter renders.
func (f *Formatter) Currency() string {
	return f.currency
}

// FormatPrice renders a price rounded to a whole currency unit, or the
// placeholder when the price is missing.
func (f *Formatter) FormatPrice(price *float64) string {
	if price == nil {
		return Placeholder
	}
	whole := decimal.NewFromFloat(*price).Round(0).IntPart()
	if f.money == nil {
		return f.currency + " " + f.printer.Sprint(number.Decimal(whole))
	}
	return f.money.Format(whole)
}

// FormatNumber renders a number with locale grouping and no currency symbol.
func (f *Formatter) FormatNumber(n *float64) string {
	if n == nil {
		return Placeholder
	}
	return f.printer.Sprint(number.Decimal(*n, number.MaxFractionDigits(3)))
}

// FormatReturn renders a percentage with two decimals; positive values get a
// "+" prefix, zero and negative values do not.
func FormatReturn(pct float64) string {
	s := decimal.NewFromFloat(pct).StringFixed(2)
	if pct > 0 {
		return "+" + s + "%"
	}
	return s + "%"
}

// Float returns a pointer to v, for optional price fields.
func Float(v float64) *float64 {
	return &v
}
