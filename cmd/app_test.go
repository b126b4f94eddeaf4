package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

func openTestApp(t *testing.T, ctx context.Context) *app {
	t.Helper()
	a, err := openApp(ctx)
	if err != nil {
		t.Fatalf("openApp() failed: %v", err)
	}
	return a
}

func TestApp_ChangesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	t.Chdir(t.TempDir())
	t.Setenv("FIN_DATA_DIR", t.TempDir())
	t.Setenv("FIN_USER", "alice")

	a := openTestApp(t, ctx)
	checking, err := a.book.CreateAccount(ctx, "Checking", finance.KindChecking, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	savings, err := a.book.CreateAccount(ctx, "Savings", finance.KindSavings, decimal.Zero)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	_, err = a.book.AddTransaction(ctx, finance.Draft{
		AccountID: checking.ID, ToAccountID: savings.ID, Type: finance.Transfer,
		Amount: decimal.NewFromInt(30), Date: date.New(2026, 10, 15),
	})
	if err != nil {
		t.Fatalf("AddTransaction() failed: %v", err)
	}
	if _, err := a.tags.Create(ctx, finance.TagDraft{ID: "1", Name: "rainy day"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	a = openTestApp(t, ctx)
	defer a.Close(ctx)
	if err := a.book.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}
	for id, want := range map[string]int64{checking.ID: 70, savings.ID: 30} {
		if acc, ok := a.book.Account(id); !ok || !acc.Balance.Equal(decimal.NewFromInt(want)) {
			t.Errorf("account %s = %+v, want balance %d", id, acc, want)
		}
	}
	if tags := a.tags.List(); len(tags) != 1 || tags[0].UserID != "alice" {
		t.Errorf("tags = %+v", tags)
	}
	stats, err := a.box.Status(ctx)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if stats.Pending != 0 || stats.Done == 0 {
		t.Errorf("outbox = %+v, want everything delivered", stats)
	}
}

func TestApp_AccountID(t *testing.T) {
	ctx := context.Background()
	t.Chdir(t.TempDir())
	t.Setenv("FIN_DATA_DIR", t.TempDir())

	a := openTestApp(t, ctx)
	defer a.Close(ctx)
	acc, _ := a.book.CreateAccount(ctx, "Checking", finance.KindChecking, decimal.Zero)
	a.book.CreateAccount(ctx, "Twin", finance.KindCash, decimal.Zero)
	a.book.CreateAccount(ctx, "twin", finance.KindCash, decimal.Zero)

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{acc.ID, acc.ID, false},
		{"CHECKING", acc.ID, false},
		{"nope", "", true},
		{"twin", "", true},
	}
	for _, tc := range tests {
		got, err := a.accountID(tc.in)
		if got != tc.want || (err != nil) != tc.wantErr {
			t.Errorf("accountID(%q) = %q, %v", tc.in, got, err)
		}
	}
	if _, err := a.accountID("nope"); !errors.Is(err, finance.ErrNotFound) {
		t.Errorf("accountID(nope) = %v, want ErrNotFound", err)
	}
}

func TestBudgetPeriod(t *testing.T) {
	today := date.New(2026, 10, 15)
	tests := []struct {
		in, want, text string
	}{
		{"monthly", "2026-10", "in the month 2026-10"},
		{"Quarter", "2026-Q4", "in the quarter 2026-Q4"},
		{"week", "2026-W42", "in the week 2026-W42"},
		{"2027", "2027", "in the year 2027"},
		{"2026-10-01_2026-10-10", "2026-10-01_2026-10-10", "from 2026-10-01 to 2026-10-10"},
	}
	for _, tc := range tests {
		r, err := budgetPeriod(tc.in, today)
		if err != nil {
			t.Errorf("budgetPeriod(%q) failed: %v", tc.in, err)
			continue
		}
		if got := r.Identifier(); got != tc.want {
			t.Errorf("budgetPeriod(%q) = %s, want %s", tc.in, got, tc.want)
		}
		if got := describePeriod(r); got != tc.text {
			t.Errorf("describePeriod(%s) = %q, want %q", r, got, tc.text)
		}
	}
	if _, err := budgetPeriod("fortnight", today); err == nil {
		t.Error("budgetPeriod(fortnight) succeeded")
	}
}
