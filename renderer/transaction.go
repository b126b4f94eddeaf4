package renderer

import (
	"fmt"

	"github.com/etnz/finance"
)

// Transaction renders a transaction to a one line sentence.
func Transaction(tx finance.Transaction, names map[string]string, currency string) string {
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}
	amount := Amount(tx.Amount, currency)
	var s string
	switch tx.Type {
	case finance.Income:
		s = fmt.Sprintf("Received %s on %s", amount, name(tx.AccountID))
	case finance.Expense:
		s = fmt.Sprintf("Spent %s from %s", amount, name(tx.AccountID))
	case finance.Transfer:
		s = fmt.Sprintf("Transferred %s from %s to %s", amount, name(tx.AccountID), name(tx.ToAccountID))
	default:
		s = fmt.Sprintf("%s of %s", tx.Type, amount)
	}
	s += " on " + tx.Date.String()
	if tx.CategoryID != "" {
		s += " (" + tx.CategoryID + ")"
	}
	return s
}
