package finance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// TxType is the type of a transaction.
type TxType string

// Transaction types.
const (
	Income   TxType = "income"
	Expense  TxType = "expense"
	Transfer TxType = "transfer"
)

// ParseTxType parses a transaction type name.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense, Transfer:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// ValidAmount reports whether amount can be used as a transaction or budget
// amount: it must be strictly positive.
func ValidAmount(amount decimal.Decimal) bool { return amount.IsPositive() }

// Transaction moves money in, out of, or between accounts.
//
// ToAccountID is set if and only if the transaction is a transfer.
type Transaction struct {
	ID          string
	AccountID   string
	ToAccountID string
	Type        TxType
	Amount      decimal.Decimal
	CategoryID  string
	Date        date.Date
	Description string
}

// MarshalJSON implements the json.Marshaler interface for Transaction.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", t.ID)
	w.Append("type", t.Type)
	w.Append("accountId", t.AccountID)
	w.Optional("toAccountId", t.ToAccountID)
	w.Append("amount", t.Amount)
	w.Optional("categoryId", t.CategoryID)
	w.Append("date", t.Date)
	w.Optional("description", t.Description)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Transaction.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID          string          `json:"id"`
		AccountID   string          `json:"accountId"`
		ToAccountID string          `json:"toAccountId"`
		Type        TxType          `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		CategoryID  string          `json:"categoryId"`
		Date        date.Date       `json:"date"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*t = Transaction(temp)
	return nil
}

// Involves reports whether the transaction references account id.
func (t Transaction) Involves(id string) bool {
	return t.AccountID == id || (t.ToAccountID != "" && t.ToAccountID == id)
}

// Draft is a transaction before it is recorded.
type Draft struct {
	AccountID   string          `json:"accountId"`
	ToAccountID string          `json:"toAccountId,omitempty"`
	Type        TxType          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Date        date.Date       `json:"date"`
	Description string          `json:"description,omitempty"`
}

// Validate checks the draft on its own, without looking at the accounts. It
// returns a copy with quick fixes applied (a zero date becomes today) or a
// *ValidationError.
func (d Draft) Validate() (Draft, error) {
	d.Description = strings.TrimSpace(d.Description)
	if d.Date.IsZero() {
		d.Date = date.Today()
	}

	t, err := ParseTxType(string(d.Type))
	if err != nil {
		return d, invalid("type", "%v", err)
	}
	d.Type = t
	if !ValidAmount(d.Amount) {
		return d, invalid("amount", "must be positive, got %s", d.Amount)
	}
	if d.AccountID == "" {
		return d, invalid("accountId", "missing account")
	}

	switch d.Type {
	case Transfer:
		if d.ToAccountID == "" {
			return d, invalid("toAccountId", "a transfer needs a destination account")
		}
		if d.ToAccountID == d.AccountID {
			return d, invalid("toAccountId", "cannot transfer from account %q to itself", d.AccountID)
		}
	default:
		if d.ToAccountID != "" {
			return d, invalid("toAccountId", "only transfers have a destination account, not %s", d.Type)
		}
	}
	return d, nil
}

func (d Draft) transaction(id string) Transaction {
	return Transaction{
		ID:          id,
		AccountID:   d.AccountID,
		ToAccountID: d.ToAccountID,
		Type:        d.Type,
		Amount:      d.Amount,
		CategoryID:  d.CategoryID,
		Date:        d.Date,
		Description: d.Description,
	}
}

// Patch lists the fields of a transaction to change. Nil fields are kept.
type Patch struct {
	AccountID   *string          `json:"accountId,omitempty"`
	ToAccountID *string          `json:"toAccountId,omitempty"`
	Type        *TxType          `json:"type,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	CategoryID  *string          `json:"categoryId,omitempty"`
	Date        *date.Date       `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// apply returns the draft of t with the patch applied. Moving a transfer to
// another type drops its destination account unless the patch sets one.
func (p Patch) apply(t Transaction) Draft {
	d := draftOf(t)
	if p.Type != nil {
		d.Type = *p.Type
		if t, err := ParseTxType(string(d.Type)); err == nil {
			d.Type = t
		}
		if d.Type != Transfer && p.ToAccountID == nil {
			d.ToAccountID = ""
		}
	}
	if p.AccountID != nil {
		d.AccountID = *p.AccountID
	}
	if p.ToAccountID != nil {
		d.ToAccountID = *p.ToAccountID
	}
	if p.Amount != nil {
		d.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		d.CategoryID = *p.CategoryID
	}
	if p.Date != nil {
		d.Date = *p.Date
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	return d
}

// ByAccount returns a predicate that accepts transactions referencing account id.
func ByAccount(id string) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.Involves(id) }
}

// ByCategory returns a predicate that filters transactions by category.
func ByCategory(id string) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.CategoryID == id }
}

// ByType returns a predicate that filters transactions by type.
func ByType(t TxType) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.Type == t }
}

// InRange returns a predicate that accepts transactions dated within r.
func InRange(r date.Range) func(Transaction) bool {
	return func(tx Transaction) bool { return r.Contains(tx.Date) }
}
