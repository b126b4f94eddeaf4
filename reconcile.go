package finance

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// Effect returns the signed balance change tx contributes to the account id.
//
//   - income on its account: +amount
//   - expense on its account: -amount
//   - transfer on its source account: -amount
//   - transfer on its destination account: +amount
//
// Any other account is not involved and gets zero.
func Effect(tx Transaction, id string) decimal.Decimal {
	effect := decimal.Zero
	switch tx.Type {
	case Income:
		if tx.AccountID == id {
			effect = effect.Add(tx.Amount)
		}
	case Expense:
		if tx.AccountID == id {
			effect = effect.Sub(tx.Amount)
		}
	case Transfer:
		if tx.AccountID == id {
			effect = effect.Sub(tx.Amount)
		}
		if tx.ToAccountID == id {
			effect = effect.Add(tx.Amount)
		}
	}
	return effect
}

// Reverse returns the change that undoes an applied effect.
func Reverse(effect decimal.Decimal) decimal.Decimal { return effect.Neg() }

// Effects returns the effect of tx on each account it involves.
func Effects(tx Transaction) Delta {
	e := make(Delta, 2)
	for _, id := range []string{tx.AccountID, tx.ToAccountID} {
		if id == "" {
			continue
		}
		e[id] = Effect(tx, id)
	}
	return e
}

// Delta maps account ids to balance changes.
type Delta map[string]decimal.Decimal

// Reverse returns the effects that undo e.
func (e Delta) Reverse() Delta {
	r := make(Delta, len(e))
	for id, v := range e {
		r[id] = Reverse(v)
	}
	return r
}

// Accounts returns the account ids of e, sorted.
func (e Delta) Accounts() []string { return slices.Sorted(maps.Keys(e)) }
