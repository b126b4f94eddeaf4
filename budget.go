package finance

import (
	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// Budget caps the spending of one category over an explicit period.
type Budget struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	Period     date.Range      `json:"period"`
}

// Key identifies the (category, period) pair a budget is unique for.
func (b Budget) Key() string { return b.CategoryID + "@" + b.Period.Identifier() }

// Category is reference data used to classify transactions and budgets.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}
