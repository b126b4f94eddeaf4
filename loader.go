package finance

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/finance/gateway"
)

// Load replaces the content of the book with the documents stored in g.
//
// Balances are recomputed from initial balances and transactions. Stored
// balances that drifted are logged and corrected through the sink.
// Transactions that fail validation or reference a missing account are logged
// and skipped.
func (b *Book) Load(ctx context.Context, g gateway.Gateway) error {
	accounts, err := fetch[Account](ctx, g, b.scope.Collection(CollAccounts), b.logger.Printf)
	if err != nil {
		return err
	}
	txs, err := fetch[Transaction](ctx, g, b.scope.Collection(CollTransactions), b.logger.Printf)
	if err != nil {
		return err
	}
	budgets, err := fetch[Budget](ctx, g, b.scope.Collection(CollBudgets), b.logger.Printf)
	if err != nil {
		return err
	}
	categories, err := fetch[Category](ctx, g, b.scope.Collection(CollCategories), b.logger.Printf)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
	b.logger.Printf("loading %s", b.scope.Collection(""))

	stored := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		stored[a.ID] = a
		a.Balance = a.InitialBalance
		b.accounts[a.ID] = &a
	}

	// Replay in chronological order, ids break ties.
	slices.SortStableFunc(txs, func(x, y Transaction) int {
		switch {
		case x.Date.Before(y.Date):
			return -1
		case x.Date.After(y.Date):
			return 1
		}
		return strings.Compare(x.ID, y.ID)
	})
	for _, tx := range txs {
		d, err := draftOf(tx).Validate()
		if err == nil {
			err = b.checkAccounts(d)
		}
		if err != nil {
			b.logger.Printf("skipping transaction %s: %v", tx.ID, err)
			continue
		}
		b.seq++
		e := &entry{tx: d.transaction(tx.ID), seq: b.seq}
		e.applied = Effects(e.tx)
		b.apply(e.applied)
		b.transactions[e.tx.ID] = e
	}

	for _, budget := range budgets {
		if budget.Period.IsZero() {
			b.logger.Printf("skipping budget %s: no period", budget.ID)
			continue
		}
		b.budgets[budget.ID] = budget
	}
	for _, c := range categories {
		b.categories[c.ID] = c
	}

	var drifted []string
	for _, id := range slices.Sorted(maps.Keys(b.accounts)) {
		if got, want := stored[id].Balance, b.accounts[id].Balance; !got.Equal(want) {
			b.logger.Printf("account %s: stored balance %s, recomputed %s", id, got, want)
			drifted = append(drifted, id)
		}
	}
	b.logger.Printf("loaded %d accounts, %d transactions, %d budgets", len(b.accounts), len(b.transactions), len(b.budgets))
	if len(drifted) == 0 {
		return nil
	}
	return b.commit(ctx, "reconcile balances", b.balances(drifted))
}

// fetch reads the first snapshot of a collection. Documents that cannot be
// decoded are reported to logf and skipped.
func fetch[T any](ctx context.Context, g gateway.Gateway, collection string, logf func(string, ...any)) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := g.Subscribe(ctx, gateway.Query{Collection: collection})
	if err != nil {
		return nil, err
	}
	select {
	case snap, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: subscription closed before the first snapshot", collection)
		}
		out, err := gateway.Decode[T](snap)
		if err != nil {
			logf("skipping undecodable documents: %v", err)
		}
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func draftOf(tx Transaction) Draft {
	return Draft{
		AccountID:   tx.AccountID,
		ToAccountID: tx.ToAccountID,
		Type:        tx.Type,
		Amount:      tx.Amount,
		CategoryID:  tx.CategoryID,
		Date:        tx.Date,
		Description: tx.Description,
	}
}
