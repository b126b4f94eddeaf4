package finance

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"testing"

	"github.com/etnz/finance/date"
	"github.com/etnz/finance/gateway"
	"github.com/shopspring/decimal"
)

// recorder is a Sink that keeps the submitted changes, and fails while err is
// set.
type recorder struct {
	changes []gateway.Change
	err     error
}

func (r *recorder) Submit(_ context.Context, c gateway.Change) error {
	if r.err != nil {
		return r.err
	}
	r.changes = append(r.changes, c)
	return nil
}

// sequentialIDs returns an id generator producing prefix1, prefix2...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestBook(t *testing.T, opts ...Option) *Book {
	t.Helper()
	opts = append([]Option{WithIDs(sequentialIDs("id"))}, opts...)
	return NewBook(gateway.Scope{User: "u", Book: "b"}, opts...)
}

func mustAccount(t *testing.T, b *Book, name, initial string) Account {
	t.Helper()
	a, err := b.CreateAccount(context.Background(), name, KindChecking, d(initial))
	if err != nil {
		t.Fatalf("CreateAccount(%q) failed: %v", name, err)
	}
	return a
}

func mustAdd(t *testing.T, b *Book, draft Draft) Transaction {
	t.Helper()
	tx, err := b.AddTransaction(context.Background(), draft)
	if err != nil {
		t.Fatalf("AddTransaction(%+v) failed: %v", draft, err)
	}
	return tx
}

func assertBalance(t *testing.T, b *Book, id, want string) {
	t.Helper()
	a, ok := b.Account(id)
	if !ok {
		t.Fatalf("Account(%q) not found", id)
	}
	if !a.Balance.Equal(d(want)) {
		t.Errorf("balance of %s = %s, want %s", a.Name, a.Balance, want)
	}
}

func TestBook_AddThenDeleteRestoresBalance(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(t)
	a := mustAccount(t, b, "Checking", "1000")

	tx := mustAdd(t, b, Draft{AccountID: a.ID, Type: Expense, Amount: d("50"), Date: date.New(2026, 10, 1)})
	assertBalance(t, b, a.ID, "950")

	if err := b.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() failed: %v", err)
	}
	assertBalance(t, b, a.ID, "1000")
	if err := b.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}
}

func TestBook_TransferSymmetry(t *testing.T) {
	b := newTestBook(t)
	from := mustAccount(t, b, "Checking", "500")
	to := mustAccount(t, b, "Savings", "100")

	mustAdd(t, b, Draft{AccountID: from.ID, ToAccountID: to.ID, Type: Transfer, Amount: d("200"), Date: date.New(2026, 10, 1)})

	assertBalance(t, b, from.ID, "300")
	assertBalance(t, b, to.ID, "300")
}

func TestBook_UpdateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("amount edit applies the difference", func(t *testing.T) {
		b := newTestBook(t)
		a := mustAccount(t, b, "Checking", "1000")
		tx := mustAdd(t, b, Draft{AccountID: a.ID, Type: Expense, Amount: d("50"), Date: date.New(2026, 10, 1)})

		amount := d("80")
		if _, err := b.UpdateTransaction(ctx, tx.ID, Patch{Amount: &amount}); err != nil {
			t.Fatalf("UpdateTransaction() failed: %v", err)
		}
		assertBalance(t, b, a.ID, "920")
	})

	t.Run("moving to another account", func(t *testing.T) {
		b := newTestBook(t)
		a1 := mustAccount(t, b, "A", "100")
		a2 := mustAccount(t, b, "B", "100")
		tx := mustAdd(t, b, Draft{AccountID: a1.ID, Type: Income, Amount: d("10"), Date: date.New(2026, 10, 1)})

		if _, err := b.UpdateTransaction(ctx, tx.ID, Patch{AccountID: &a2.ID}); err != nil {
			t.Fatalf("UpdateTransaction() failed: %v", err)
		}
		assertBalance(t, b, a1.ID, "100")
		assertBalance(t, b, a2.ID, "110")
	})

	t.Run("transfer to expense drops the destination", func(t *testing.T) {
		b := newTestBook(t)
		a1 := mustAccount(t, b, "A", "100")
		a2 := mustAccount(t, b, "B", "100")
		tx := mustAdd(t, b, Draft{AccountID: a1.ID, ToAccountID: a2.ID, Type: Transfer, Amount: d("30"), Date: date.New(2026, 10, 1)})

		typ := Expense
		got, err := b.UpdateTransaction(ctx, tx.ID, Patch{Type: &typ})
		if err != nil {
			t.Fatalf("UpdateTransaction() failed: %v", err)
		}
		if got.ToAccountID != "" {
			t.Errorf("ToAccountID = %q, want empty", got.ToAccountID)
		}
		assertBalance(t, b, a1.ID, "70")
		assertBalance(t, b, a2.ID, "100")
	})

	t.Run("re-pointing a transfer writes the four balances", func(t *testing.T) {
		rec := &recorder{}
		b := newTestBook(t, WithSink(rec))
		x := mustAccount(t, b, "X", "100")
		y := mustAccount(t, b, "Y", "100")
		z := mustAccount(t, b, "Z", "100")
		w := mustAccount(t, b, "W", "100")
		tx := mustAdd(t, b, Draft{AccountID: x.ID, ToAccountID: y.ID, Type: Transfer, Amount: d("30"), Date: date.New(2026, 10, 1)})

		if _, err := b.UpdateTransaction(ctx, tx.ID, Patch{AccountID: &z.ID, ToAccountID: &w.ID}); err != nil {
			t.Fatalf("UpdateTransaction() failed: %v", err)
		}
		assertBalance(t, b, x.ID, "100")
		assertBalance(t, b, y.ID, "100")
		assertBalance(t, b, z.ID, "70")
		assertBalance(t, b, w.ID, "130")

		writes := rec.changes[len(rec.changes)-1].Writes
		want := map[string]string{x.ID: "100", y.ID: "100", z.ID: "70", w.ID: "130"}
		if len(writes) != 1+len(want) {
			t.Fatalf("UpdateTransaction() wrote %v, want the transaction and 4 balances", writes)
		}
		for _, wr := range writes[1:] {
			if wr.Doc["balance"] != want[wr.ID] {
				t.Errorf("balance write of %s = %v, want %s", wr.ID, wr.Doc["balance"], want[wr.ID])
			}
			delete(want, wr.ID)
		}
		if len(want) != 0 {
			t.Errorf("balances not written: %v", want)
		}

		// Only the destination moves: the source is written once.
		if _, err := b.UpdateTransaction(ctx, tx.ID, Patch{ToAccountID: &y.ID}); err != nil {
			t.Fatalf("UpdateTransaction() failed: %v", err)
		}
		if writes := rec.changes[len(rec.changes)-1].Writes; len(writes) != 4 {
			t.Errorf("UpdateTransaction() wrote %v, want the transaction and 3 balances", writes)
		}
		assertBalance(t, b, y.ID, "130")
		assertBalance(t, b, w.ID, "100")
	})

	t.Run("type names are normalized", func(t *testing.T) {
		b := newTestBook(t)
		a1 := mustAccount(t, b, "A", "100")
		a2 := mustAccount(t, b, "B", "100")
		tx := mustAdd(t, b, Draft{AccountID: a1.ID, Type: Income, Amount: d("10"), Date: date.New(2026, 10, 1)})

		typ := TxType(" Transfer")
		got, err := b.UpdateTransaction(ctx, tx.ID, Patch{Type: &typ, ToAccountID: &a2.ID})
		if err != nil {
			t.Fatalf("UpdateTransaction() failed: %v", err)
		}
		if got.Type != Transfer {
			t.Errorf("Type = %q, want %q", got.Type, Transfer)
		}
		assertBalance(t, b, a1.ID, "90")
		assertBalance(t, b, a2.ID, "110")

		typ = "EXPENSE"
		if got, err = b.UpdateTransaction(ctx, tx.ID, Patch{Type: &typ}); err != nil {
			t.Fatalf("UpdateTransaction() failed: %v", err)
		}
		if got.Type != Expense || got.ToAccountID != "" {
			t.Errorf("UpdateTransaction() = %+v, want an expense without destination", got)
		}
		assertBalance(t, b, a1.ID, "90")
		assertBalance(t, b, a2.ID, "100")
	})

	t.Run("invalid edit leaves the state untouched", func(t *testing.T) {
		b := newTestBook(t)
		a := mustAccount(t, b, "A", "100")
		tx := mustAdd(t, b, Draft{AccountID: a.ID, Type: Expense, Amount: d("10"), Date: date.New(2026, 10, 1)})

		zero := decimal.Zero
		if _, err := b.UpdateTransaction(ctx, tx.ID, Patch{Amount: &zero}); !errors.Is(err, ErrValidation) {
			t.Fatalf("UpdateTransaction() error = %v, want ErrValidation", err)
		}
		assertBalance(t, b, a.ID, "90")
		if got, _ := b.Transaction(tx.ID); !got.Amount.Equal(d("10")) {
			t.Errorf("amount = %s, want 10", got.Amount)
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		b := newTestBook(t)
		if _, err := b.UpdateTransaction(ctx, "nope", Patch{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateTransaction() error = %v, want ErrNotFound", err)
		}
	})
}

func TestBook_DeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	b := newTestBook(t, WithSink(rec))
	a := mustAccount(t, b, "Checking", "1000")
	s := mustAccount(t, b, "Savings", "0")
	other := mustAccount(t, b, "Cash", "20")

	mustAdd(t, b, Draft{AccountID: a.ID, Type: Expense, Amount: d("100"), Date: date.New(2026, 10, 1)})
	mustAdd(t, b, Draft{AccountID: a.ID, ToAccountID: s.ID, Type: Transfer, Amount: d("300"), Date: date.New(2026, 10, 2)})
	mustAdd(t, b, Draft{AccountID: other.ID, Type: Income, Amount: d("5"), Date: date.New(2026, 10, 3)})
	assertBalance(t, b, s.ID, "300")

	rec.changes = nil
	if err := b.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAccount() failed: %v", err)
	}

	if _, ok := b.Account(a.ID); ok {
		t.Error("deleted account still exists")
	}
	if got := b.ListTransactions(ByAccount(a.ID)); len(got) != 0 {
		t.Errorf("transactions of the deleted account: %v", got)
	}
	if got := b.ListTransactions(); len(got) != 1 {
		t.Errorf("ListTransactions() returned %d transactions, want 1", len(got))
	}
	assertBalance(t, b, s.ID, "0")
	assertBalance(t, b, other.ID, "25")
	if err := b.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}

	if len(rec.changes) != 1 {
		t.Fatalf("DeleteAccount() submitted %d changes, want 1", len(rec.changes))
	}
	writes := rec.changes[0].Writes
	if last := writes[len(writes)-1]; last.Op != gateway.OpDelete || last.ID != a.ID {
		t.Errorf("last write = %v, want the account deletion", last)
	}
	// two transaction deletions, the savings balance, the account deletion.
	if len(writes) != 4 {
		t.Errorf("DeleteAccount() wrote %v, want 4 writes", writes)
	}
}

func TestBook_Validation(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(t)
	a := mustAccount(t, b, "A", "100")
	c := mustAccount(t, b, "C", "100")

	tests := []struct {
		name  string
		draft Draft
		want  error
	}{
		{"zero amount", Draft{AccountID: a.ID, Type: Expense, Amount: decimal.Zero}, ErrValidation},
		{"negative amount", Draft{AccountID: a.ID, Type: Income, Amount: d("-1")}, ErrValidation},
		{"unknown type", Draft{AccountID: a.ID, Type: "gift", Amount: d("1")}, ErrValidation},
		{"missing account", Draft{Type: Income, Amount: d("1")}, ErrValidation},
		{"transfer without destination", Draft{AccountID: a.ID, Type: Transfer, Amount: d("1")}, ErrValidation},
		{"transfer to itself", Draft{AccountID: a.ID, ToAccountID: a.ID, Type: Transfer, Amount: d("1")}, ErrValidation},
		{"income with destination", Draft{AccountID: a.ID, ToAccountID: c.ID, Type: Income, Amount: d("1")}, ErrValidation},
		{"unknown account", Draft{AccountID: "nope", Type: Income, Amount: d("1")}, ErrNotFound},
		{"unknown destination", Draft{AccountID: a.ID, ToAccountID: "nope", Type: Transfer, Amount: d("1")}, ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := b.AddTransaction(ctx, tc.draft); !errors.Is(err, tc.want) {
				t.Errorf("AddTransaction() error = %v, want %v", err, tc.want)
			}
		})
	}

	if got := b.ListTransactions(); len(got) != 0 {
		t.Errorf("rejected transactions were recorded: %v", got)
	}
	assertBalance(t, b, a.ID, "100")
	assertBalance(t, b, c.ID, "100")
}

func TestBook_TypeNames(t *testing.T) {
	tests := []struct {
		typ        TxType
		want       TxType
		a, c, food string
	}{
		{"EXPENSE", Expense, "70", "100", "30"},
		{" Income ", Income, "130", "100", "0"},
		{"Transfer", Transfer, "70", "130", "0"},
	}
	for _, tc := range tests {
		t.Run(string(tc.typ), func(t *testing.T) {
			b := newTestBook(t)
			a := mustAccount(t, b, "A", "100")
			c := mustAccount(t, b, "C", "100")
			draft := Draft{AccountID: a.ID, Type: tc.typ, Amount: d("30"), CategoryID: "food", Date: date.New(2026, 10, 1)}
			if tc.want == Transfer {
				draft.ToAccountID = c.ID
			}
			tx := mustAdd(t, b, draft)
			if tx.Type != tc.want {
				t.Errorf("Type = %q, want %q", tx.Type, tc.want)
			}
			assertBalance(t, b, a.ID, tc.a)
			assertBalance(t, b, c.ID, tc.c)
			october, _ := date.ParseRange("2026-10")
			if got := b.Progress("food", d("100"), october); !got.Spent.Equal(d(tc.food)) {
				t.Errorf("spent = %s, want %s", got.Spent, tc.food)
			}
		})
	}
}

func TestBook_CreateAccount(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(t)

	a, err := b.CreateAccount(ctx, "  Wallet ", "", d("12.30"))
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	if a.Name != "Wallet" || a.Kind != KindOther || !a.Balance.Equal(d("12.3")) {
		t.Errorf("CreateAccount() = %+v", a)
	}
	if _, err := b.CreateAccount(ctx, " ", KindCash, decimal.Zero); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateAccount(blank) error = %v, want ErrValidation", err)
	}
	if _, err := b.CreateAccount(ctx, "X", "piggy", decimal.Zero); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateAccount(piggy) error = %v, want ErrValidation", err)
	}
	if err := b.DeleteAccount(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteAccount(nope) error = %v, want ErrNotFound", err)
	}
}

func TestBook_Budgets(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(t)
	october, _ := date.ParseRange("2026-10")

	budget, err := b.CreateBudget(ctx, "food", d("100"), october)
	if err != nil {
		t.Fatalf("CreateBudget() failed: %v", err)
	}
	_, err = b.CreateBudget(ctx, "food", d("200"), october)
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Existing != budget.ID {
		t.Errorf("CreateBudget(duplicate) error = %v, want a conflict with %s", err, budget.ID)
	}
	if _, err := b.CreateBudget(ctx, "food", d("100"), date.Range{}); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateBudget(no period) error = %v, want ErrValidation", err)
	}
	if _, err := b.CreateBudget(ctx, "food", d("0"), october); !errors.Is(err, ErrValidation) {
		t.Errorf("CreateBudget(zero) error = %v, want ErrValidation", err)
	}
	november, _ := date.ParseRange("2026-11")
	if _, err := b.CreateBudget(ctx, "food", d("100"), november); err != nil {
		t.Errorf("CreateBudget(november) failed: %v", err)
	}
	if got := len(b.ListBudgets()); got != 2 {
		t.Errorf("ListBudgets() returned %d budgets, want 2", got)
	}

	if err := b.DeleteBudget(ctx, budget.ID); err != nil {
		t.Fatalf("DeleteBudget() failed: %v", err)
	}
	if err := b.DeleteBudget(ctx, budget.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteBudget(twice) error = %v, want ErrNotFound", err)
	}
}

func TestBook_ListTransactionsOrder(t *testing.T) {
	b := newTestBook(t)
	a := mustAccount(t, b, "A", "0")
	late := mustAdd(t, b, Draft{AccountID: a.ID, Type: Income, Amount: d("1"), Date: date.New(2026, 10, 5)})
	first := mustAdd(t, b, Draft{AccountID: a.ID, Type: Income, Amount: d("2"), Date: date.New(2026, 10, 1)})
	second := mustAdd(t, b, Draft{AccountID: a.ID, Type: Expense, Amount: d("3"), CategoryID: "food", Date: date.New(2026, 10, 1)})

	got := b.ListTransactions()
	want := []string{first.ID, second.ID, late.ID}
	for i, tx := range got {
		if tx.ID != want[i] {
			t.Errorf("ListTransactions()[%d] = %s, want %s", i, tx.ID, want[i])
		}
	}

	if got := b.ListTransactions(ByType(Expense), ByCategory("food")); len(got) != 1 || got[0].ID != second.ID {
		t.Errorf("ListTransactions(expense, food) = %v", got)
	}
}

func TestBook_PersistenceFailureKeepsMutation(t *testing.T) {
	rec := &recorder{err: errors.New("offline")}
	b := newTestBook(t, WithSink(rec))

	a, err := b.CreateAccount(context.Background(), "A", KindCash, d("10"))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("CreateAccount() error = %v, want ErrPersistence", err)
	}
	if _, ok := b.Account(a.ID); !ok {
		t.Error("account is missing after a persistence failure")
	}
}

func TestBook_ChangesCarryBalances(t *testing.T) {
	rec := &recorder{}
	b := newTestBook(t, WithSink(rec))
	a := mustAccount(t, b, "A", "10")
	mustAdd(t, b, Draft{AccountID: a.ID, Type: Income, Amount: d("5"), Date: date.New(2026, 10, 1)})

	c := rec.changes[len(rec.changes)-1]
	if len(c.Writes) != 2 {
		t.Fatalf("AddTransaction() wrote %v, want 2 writes", c.Writes)
	}
	bal := c.Writes[1]
	if bal.Op != gateway.OpUpdate || !bal.Merge || bal.Collection != "users/u/books/b/accounts" || bal.Doc["balance"] != "15" {
		t.Errorf("balance write = %+v", bal)
	}
}

// TestBook_RandomOperations checks that balances stay consistent over random
// sequences of mutations, and that a book loaded from the persisted writes
// equals the original.
func TestBook_RandomOperations(t *testing.T) {
	ctx := context.Background()
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			r := rand.New(rand.NewSource(seed))
			mem := gateway.NewMemory()
			sink := applier{mem}
			b := newTestBook(t, WithSink(sink))
			var accounts []string
			for i := range 4 {
				accounts = append(accounts, mustAccount(t, b, fmt.Sprint("acc", i), strconv.Itoa(r.Intn(1000))).ID)
			}
			pick := func() string { return accounts[r.Intn(len(accounts))] }
			other := func(not string) string {
				for {
					if id := pick(); id != not {
						return id
					}
				}
			}

			var txs []string
			for range 200 {
				switch op := r.Intn(10); {
				case op < 5 || len(txs) == 0:
					draft := Draft{AccountID: pick(), Amount: decimal.NewFromInt(int64(1 + r.Intn(100))), Date: date.New(2026, 10, 1+r.Intn(28))}
					switch r.Intn(3) {
					case 0:
						draft.Type = Income
					case 1:
						draft.Type = Expense
					default:
						draft.Type = Transfer
						draft.ToAccountID = other(draft.AccountID)
					}
					txs = append(txs, mustAdd(t, b, draft).ID)
				case op < 8:
					id := txs[r.Intn(len(txs))]
					tx, _ := b.Transaction(id)
					var patch Patch
					switch r.Intn(3) {
					case 0:
						amount := decimal.NewFromInt(int64(1 + r.Intn(100)))
						account := pick()
						patch.Amount = &amount
						if tx.Type != Transfer || tx.ToAccountID != account {
							patch.AccountID = &account
						}
					case 1:
						typ := []TxType{Income, Expense}[r.Intn(2)]
						patch.Type = &typ
					default:
						typ, to := Transfer, other(tx.AccountID)
						patch.Type, patch.ToAccountID = &typ, &to
					}
					if _, err := b.UpdateTransaction(ctx, id, patch); err != nil {
						t.Fatalf("UpdateTransaction() failed: %v", err)
					}
				default:
					i := r.Intn(len(txs))
					if err := b.DeleteTransaction(ctx, txs[i]); err != nil {
						t.Fatalf("DeleteTransaction() failed: %v", err)
					}
					txs = append(txs[:i], txs[i+1:]...)
				}
				if err := b.Check(); err != nil {
					t.Fatalf("Check() = %v", err)
				}
			}

			loaded := newTestBook(t)
			if err := loaded.Load(ctx, mem); err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			for _, want := range b.ListAccounts() {
				got, ok := loaded.Account(want.ID)
				if !ok || !got.Balance.Equal(want.Balance) {
					t.Errorf("loaded account %s = %+v, want %+v", want.ID, got, want)
				}
			}
			if got, want := len(loaded.ListTransactions()), len(b.ListTransactions()); got != want {
				t.Errorf("loaded %d transactions, want %d", got, want)
			}
		})
	}
}

// applier is a Sink writing changes straight to a gateway.
type applier struct{ g gateway.Gateway }

func (a applier) Submit(ctx context.Context, c gateway.Change) error {
	return gateway.ApplyChange(ctx, a.g, c)
}

func TestBook_LoadCorrectsDrift(t *testing.T) {
	ctx := context.Background()
	mem := gateway.NewMemory()
	scope := gateway.Scope{User: "u", Book: "b"}
	accounts := scope.Collection(CollAccounts)

	mem.Create(ctx, accounts, "a", gateway.Document{"id": "a", "name": "A", "kind": "cash", "initialBalance": "100", "balance": "42"})
	mem.Create(ctx, scope.Collection(CollTransactions), "t1", gateway.Document{"id": "t1", "accountId": "a", "type": "expense", "amount": "10", "date": "2026-10-01"})
	mem.Create(ctx, scope.Collection(CollTransactions), "t2", gateway.Document{"id": "t2", "accountId": "gone", "type": "income", "amount": "10", "date": "2026-10-01"})

	b := NewBook(scope, WithSink(applier{mem}))
	if err := b.Load(ctx, mem); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	assertBalance(t, b, "a", "90")
	if _, ok := b.Transaction("t2"); ok {
		t.Error("transaction on a missing account was loaded")
	}
	doc, _ := mem.Get(accounts, "a")
	if doc["balance"] != "90" {
		t.Errorf("stored balance = %v, want 90", doc["balance"])
	}
}
