package finance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountKind classifies accounts.
type AccountKind string

const (
	KindCash       AccountKind = "cash"
	KindChecking   AccountKind = "checking"
	KindSavings    AccountKind = "savings"
	KindCredit     AccountKind = "credit"
	KindInvestment AccountKind = "investment"
	KindOther      AccountKind = "other"
)

// AccountKinds lists the known kinds, in display order.
var AccountKinds = []AccountKind{KindCash, KindChecking, KindSavings, KindCredit, KindInvestment, KindOther}

// ParseAccountKind parses a kind name. The empty string is KindOther.
func ParseAccountKind(s string) (AccountKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindOther, nil
	}
	for _, k := range AccountKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown account kind %q", s)
}

// Account holds money. Balance is derived: it always equals InitialBalance
// plus the effects of every transaction referencing the account.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Kind           AccountKind     `json:"kind"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	Balance        decimal.Decimal `json:"balance"`
}
