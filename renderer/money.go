package renderer

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount formats value in the currency code, for instance "$1,234.50".
// Unknown currencies are printed with two decimals followed by the code.
func Amount(value decimal.Decimal, code string) string {
	if money.GetCurrency(code) == nil {
		if code == "" {
			return value.StringFixed(2)
		}
		return value.StringFixed(2) + " " + code
	}
	// to get a never nil currency I need to call the Money constructor
	cur := *money.New(0, code).Currency()
	dec := value.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

// SignedAmount is Amount with an explicit sign. Zero is "-".
func SignedAmount(value decimal.Decimal, code string) string {
	switch {
	case value.IsZero():
		return "-"
	case value.IsPositive():
		return "+" + Amount(value, code)
	default:
		return Amount(value, code)
	}
}
