package finance

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEffect(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		id   string
		want string
	}{
		{"income", Transaction{AccountID: "a", Type: Income, Amount: d("10")}, "a", "10"},
		{"expense", Transaction{AccountID: "a", Type: Expense, Amount: d("10")}, "a", "-10"},
		{"transfer source", Transaction{AccountID: "a", ToAccountID: "b", Type: Transfer, Amount: d("10")}, "a", "-10"},
		{"transfer destination", Transaction{AccountID: "a", ToAccountID: "b", Type: Transfer, Amount: d("10")}, "b", "10"},
		{"not involved", Transaction{AccountID: "a", ToAccountID: "b", Type: Transfer, Amount: d("10")}, "c", "0"},
		{"expense elsewhere", Transaction{AccountID: "a", Type: Expense, Amount: d("10")}, "b", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Effect(tc.tx, tc.id)
			if !got.Equal(d(tc.want)) {
				t.Errorf("Effect() = %s, want %s", got, tc.want)
			}
			if sum := got.Add(Reverse(got)); !sum.IsZero() {
				t.Errorf("Effect() + Reverse() = %s, want 0", sum)
			}
		})
	}
}

func TestEffects_TransferSumsToZero(t *testing.T) {
	tx := Transaction{AccountID: "a", ToAccountID: "b", Type: Transfer, Amount: d("42.5")}
	effects := Effects(tx)
	if got := effects.Accounts(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Accounts() = %v, want [a b]", got)
	}
	sum := decimal.Zero
	for _, v := range effects {
		sum = sum.Add(v)
	}
	if !sum.IsZero() {
		t.Errorf("sum of transfer effects = %s, want 0", sum)
	}
	for id, v := range effects.Reverse() {
		if !v.Equal(effects[id].Neg()) {
			t.Errorf("Reverse()[%s] = %s, want %s", id, v, effects[id].Neg())
		}
	}
}
