package finance

import (
	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// BudgetProgress is the spending of a category against its budget.
type BudgetProgress struct {
	CategoryID string          `json:"categoryId"`
	Period     date.Range      `json:"period"`
	Amount     decimal.Decimal `json:"amount"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Over reports whether spending exceeds the budget.
func (p BudgetProgress) Over() bool { return p.Remaining.IsNegative() }

var hundred = decimal.NewFromInt(100)

// Progress sums the expenses of txs in categoryID dated within period, and
// compares them with amount. Percentage is not clamped, it exceeds 100 when
// the budget is overspent. A zero amount yields a zero percentage.
func Progress(txs []Transaction, categoryID string, amount decimal.Decimal, period date.Range) BudgetProgress {
	spent := decimal.Zero
	for _, tx := range txs {
		if tx.Type == Expense && tx.CategoryID == categoryID && period.Contains(tx.Date) {
			spent = spent.Add(tx.Amount)
		}
	}
	p := BudgetProgress{
		CategoryID: categoryID,
		Period:     period,
		Amount:     amount,
		Spent:      spent,
		Remaining:  amount.Sub(spent),
		Percentage: decimal.Zero,
	}
	if !amount.IsZero() {
		p.Percentage = spent.Mul(hundred).Div(amount)
	}
	return p
}

// Progress computes the progress of categoryID over period against amount
// using the transactions of the book.
func (b *Book) Progress(categoryID string, amount decimal.Decimal, period date.Range) BudgetProgress {
	return Progress(b.ListTransactions(ByType(Expense), ByCategory(categoryID), InRange(period)), categoryID, amount, period)
}

// BudgetProgress computes the progress of budget id.
func (b *Book) BudgetProgress(id string) (BudgetProgress, error) {
	budget, ok := b.Budget(id)
	if !ok {
		return BudgetProgress{}, &NotFoundError{Kind: "budget", ID: id}
	}
	return b.Progress(budget.CategoryID, budget.Amount, budget.Period), nil
}
