package money

import (
	"github.com/pkg/errors"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencyFormatter renders amounts with the symbol of one ISO 4217 currency
// and the number conventions of one locale.
type CurrencyFormatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewCurrencyFormatter builds a formatter for an ISO currency code such as
// "EUR" and a BCP 47 locale such as "fr".
func NewCurrencyFormatter(code, locale string) (*CurrencyFormatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid currency %q", code)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid locale %q", locale)
	}
	return &CurrencyFormatter{unit: unit, printer: message.NewPrinter(tag)}, nil
}

// FormatPrice renders m, e.g. "€ 6,00".
func (f *CurrencyFormatter) FormatPrice(m Money) string {
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(float64(m.Cents()) / 100)))
}

var _ Formatter = (*CurrencyFormatter)(nil)
