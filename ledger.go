package finance

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/etnz/finance/date"
	"github.com/etnz/finance/gateway"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collections of a book in the gateway.
const (
	CollAccounts     = "accounts"
	CollTransactions = "transactions"
	CollBudgets      = "budgets"
	CollCategories   = "categories"
	CollTags         = "tags"
)

// Sink receives the gateway writes implied by each committed mutation, as a
// single change.
type Sink interface {
	Submit(ctx context.Context, change gateway.Change) error
}

type discard struct{}

func (discard) Submit(context.Context, gateway.Change) error { return nil }

// Book is the authoritative in-memory state of one book: accounts,
// transactions, budgets and categories.
//
// Every mutation is validated first, then applied to the in-memory state, then
// handed to the Sink. Validation, not-found and conflict errors leave the state
// untouched. A Sink failure is returned as a *PersistenceError but the mutation
// stands: the change is listed by Unsaved and submitted again by Flush or the
// next mutation.
//
// Mutations are serialized; reads run concurrently and return copies.
type Book struct {
	mu     sync.RWMutex
	scope  gateway.Scope
	sink   Sink
	newID  func() string
	logger *log.Logger

	accounts     map[string]*Account
	transactions map[string]*entry
	seq          int
	budgets      map[string]Budget
	categories   map[string]Category

	unsaved []gateway.Change // refused by the sink, in commit order
}

// entry is a recorded transaction with the effects applied when it was
// recorded. Reversal negates applied, it never recomputes it.
type entry struct {
	tx      Transaction
	applied Delta
	seq     int // recording order
}

// Option configures a Book.
type Option func(*Book)

// WithSink sets where committed mutations are sent.
func WithSink(s Sink) Option { return func(b *Book) { b.sink = s } }

// WithIDs sets the generator of account, transaction and budget ids.
func WithIDs(newID func() string) Option { return func(b *Book) { b.newID = newID } }

// WithLogger sets the logger used to report inconsistencies found by Load.
func WithLogger(l *log.Logger) Option { return func(b *Book) { b.logger = l } }

// NewBook creates an empty book.
func NewBook(scope gateway.Scope, opts ...Option) *Book {
	b := &Book{
		scope:  scope,
		sink:   discard{},
		newID:  uuid.NewString,
		logger: log.New(io.Discard, "", 0),
	}
	b.reset()
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Book) reset() {
	b.accounts = make(map[string]*Account)
	b.transactions = make(map[string]*entry)
	b.budgets = make(map[string]Budget)
	b.categories = make(map[string]Category)
	b.seq = 0
}

// Scope returns the user and book this book belongs to.
func (b *Book) Scope() gateway.Scope { return b.scope }

// --- Accounts ---

// CreateAccount opens an account with an initial balance.
func (b *Book) CreateAccount(ctx context.Context, name string, kind AccountKind, initialBalance decimal.Decimal) (Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, invalid("name", "missing account name")
	}
	kind, err := ParseAccountKind(string(kind))
	if err != nil {
		return Account{}, invalid("kind", "%v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	a := &Account{ID: b.newID(), Name: name, Kind: kind, InitialBalance: initialBalance, Balance: initialBalance}
	b.accounts[a.ID] = a

	return *a, b.commit(ctx, "create account "+a.ID, []gateway.Write{
		b.create(CollAccounts, a.ID, a),
	})
}

// DeleteAccount removes an account and every transaction referencing it. The
// effects of those transactions are reversed on all their accounts first.
func (b *Book) DeleteAccount(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.accounts[id]; !ok {
		return &NotFoundError{Kind: "account", ID: id}
	}

	var writes []gateway.Write
	others := make(map[string]struct{})
	for _, e := range b.entries(ByAccount(id)) {
		b.apply(e.applied.Reverse())
		delete(b.transactions, e.tx.ID)
		writes = append(writes, b.delete(CollTransactions, e.tx.ID))
		for other := range e.applied {
			if other != id {
				others[other] = struct{}{}
			}
		}
	}
	delete(b.accounts, id)

	writes = append(writes, b.balances(slices.Sorted(maps.Keys(others)))...)
	writes = append(writes, b.delete(CollAccounts, id))
	return b.commit(ctx, "delete account "+id, writes)
}

// ListAccounts returns all accounts sorted by name.
func (b *Book) ListAccounts() []Account {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.listAccounts()
}

func (b *Book) listAccounts() []Account {
	out := make([]Account, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, *a)
	}
	slices.SortFunc(out, func(x, y Account) int {
		return cmp.Or(strings.Compare(x.Name, y.Name), strings.Compare(x.ID, y.ID))
	})
	return out
}

// Account returns the account id, if it exists.
func (b *Book) Account(id string) (Account, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// --- Transactions ---

// AddTransaction validates and records a transaction, and applies its effects
// to the accounts involved.
func (b *Book) AddTransaction(ctx context.Context, draft Draft) (Transaction, error) {
	d, err := draft.Validate()
	if err != nil {
		return Transaction{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAccounts(d); err != nil {
		return Transaction{}, err
	}

	b.seq++
	e := &entry{tx: d.transaction(b.newID()), seq: b.seq}
	e.applied = Effects(e.tx)
	b.apply(e.applied)
	b.transactions[e.tx.ID] = e

	writes := []gateway.Write{b.create(CollTransactions, e.tx.ID, e.tx)}
	writes = append(writes, b.balances(e.applied.Accounts())...)
	return e.tx, b.commit(ctx, "add transaction "+e.tx.ID, writes)
}

// UpdateTransaction edits a transaction. The effects applied when it was
// recorded are reversed on the old accounts, then the effects of the edited
// transaction are applied on the new ones.
func (b *Book) UpdateTransaction(ctx context.Context, id string, patch Patch) (Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.transactions[id]
	if !ok {
		return Transaction{}, &NotFoundError{Kind: "transaction", ID: id}
	}
	d, err := patch.apply(e.tx).Validate()
	if err != nil {
		return Transaction{}, err
	}
	if err := b.checkAccounts(d); err != nil {
		return Transaction{}, err
	}

	old := e.applied
	b.apply(old.Reverse())
	e.tx = d.transaction(id)
	e.applied = Effects(e.tx)
	b.apply(e.applied)

	touched := make(map[string]struct{})
	for _, acc := range append(old.Accounts(), e.applied.Accounts()...) {
		touched[acc] = struct{}{}
	}
	writes := []gateway.Write{b.update(CollTransactions, id, e.tx)}
	writes = append(writes, b.balances(slices.Sorted(maps.Keys(touched)))...)
	return e.tx, b.commit(ctx, "update transaction "+id, writes)
}

// DeleteTransaction removes a transaction and reverses its effects.
func (b *Book) DeleteTransaction(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.transactions[id]
	if !ok {
		return &NotFoundError{Kind: "transaction", ID: id}
	}
	b.apply(e.applied.Reverse())
	delete(b.transactions, id)

	writes := []gateway.Write{b.delete(CollTransactions, id)}
	writes = append(writes, b.balances(e.applied.Accounts())...)
	return b.commit(ctx, "delete transaction "+id, writes)
}

// ListTransactions returns the transactions accepted by all filters, in
// chronological order. Transactions on the same day keep their recording
// order.
func (b *Book) ListTransactions(filters ...func(Transaction) bool) []Transaction {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entries := b.entries(filters...)
	out := make([]Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.tx
	}
	return out
}

// Transaction returns the transaction id, if it exists.
func (b *Book) Transaction(id string) (Transaction, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.transactions[id]
	if !ok {
		return Transaction{}, false
	}
	return e.tx, true
}

// entries returns the sorted entries accepted by all filters.
func (b *Book) entries(filters ...func(Transaction) bool) []*entry {
	var out []*entry
next:
	for _, e := range b.transactions {
		for _, accept := range filters {
			if !accept(e.tx) {
				continue next
			}
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(x, y *entry) int {
		switch {
		case x.tx.Date.Before(y.tx.Date):
			return -1
		case x.tx.Date.After(y.tx.Date):
			return 1
		default:
			return cmp.Compare(x.seq, y.seq)
		}
	})
	return out
}

// checkAccounts verifies that the accounts referenced by d exist.
func (b *Book) checkAccounts(d Draft) error {
	for _, id := range []string{d.AccountID, d.ToAccountID} {
		if id == "" {
			continue
		}
		if _, ok := b.accounts[id]; !ok {
			return &NotFoundError{Kind: "account", ID: id}
		}
	}
	return nil
}

// apply adds delta to the account balances.
func (b *Book) apply(delta Delta) {
	for id, v := range delta {
		if a, ok := b.accounts[id]; ok {
			a.Balance = a.Balance.Add(v)
		}
	}
}

// --- Budgets ---

// CreateBudget sets a spending cap for a category over period. There can be
// only one budget per category and period.
func (b *Book) CreateBudget(ctx context.Context, categoryID string, amount decimal.Decimal, period date.Range) (Budget, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return Budget{}, invalid("categoryId", "missing category")
	}
	if !ValidAmount(amount) {
		return Budget{}, invalid("amount", "must be positive, got %s", amount)
	}
	if period.IsZero() || period.To.Before(period.From) {
		return Budget{}, invalid("period", "a budget needs an explicit period")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	budget := Budget{CategoryID: categoryID, Amount: amount, Period: period}
	for _, other := range b.budgets {
		if other.Key() == budget.Key() {
			return Budget{}, &ConflictError{
				Kind:     "budget",
				Existing: other.ID,
				Reason:   fmt.Sprintf("category %q already has a budget for %s", categoryID, period),
			}
		}
	}
	budget.ID = b.newID()
	b.budgets[budget.ID] = budget

	return budget, b.commit(ctx, "create budget "+budget.ID, []gateway.Write{
		b.create(CollBudgets, budget.ID, budget),
	})
}

// DeleteBudget removes a budget.
func (b *Book) DeleteBudget(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.budgets[id]; !ok {
		return &NotFoundError{Kind: "budget", ID: id}
	}
	delete(b.budgets, id)
	return b.commit(ctx, "delete budget "+id, []gateway.Write{b.delete(CollBudgets, id)})
}

// ListBudgets returns all budgets sorted by period, then category.
func (b *Book) ListBudgets() []Budget {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.listBudgets()
}

func (b *Book) listBudgets() []Budget {
	out := slices.Collect(maps.Values(b.budgets))
	slices.SortFunc(out, func(x, y Budget) int {
		switch {
		case x.Period.From.Before(y.Period.From):
			return -1
		case x.Period.From.After(y.Period.From):
			return 1
		}
		return cmp.Or(strings.Compare(x.CategoryID, y.CategoryID), strings.Compare(x.ID, y.ID))
	})
	return out
}

// Budget returns the budget id, if it exists.
func (b *Book) Budget(id string) (Budget, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	budget, ok := b.budgets[id]
	return budget, ok
}

// --- Categories ---

// SetCategories replaces the reference categories.
func (b *Book) SetCategories(categories ...Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = make(map[string]Category, len(categories))
	for _, c := range categories {
		b.categories[c.ID] = c
	}
}

// Categories returns the reference categories sorted by name.
func (b *Book) Categories() []Category {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := slices.Collect(maps.Values(b.categories))
	slices.SortFunc(out, func(x, y Category) int {
		return cmp.Or(strings.Compare(x.Name, y.Name), strings.Compare(x.ID, y.ID))
	})
	return out
}

// Category returns the category id, if it exists.
func (b *Book) Category(id string) (Category, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.categories[id]
	return c, ok
}

// --- Consistency ---

// Check verifies that every account balance equals its initial balance plus
// the effects of the transactions referencing it.
func (b *Book) Check() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	want := make(map[string]decimal.Decimal, len(b.accounts))
	for id, a := range b.accounts {
		want[id] = a.InitialBalance
	}
	var errs error
	for _, e := range b.transactions {
		for _, id := range []string{e.tx.AccountID, e.tx.ToAccountID} {
			if id == "" {
				continue
			}
			if _, ok := want[id]; !ok {
				errs = errors.Join(errs, fmt.Errorf("transaction %s references missing account %s", e.tx.ID, id))
			}
		}
		for id, v := range Effects(e.tx) {
			want[id] = want[id].Add(v)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(b.accounts)) {
		if got := b.accounts[id].Balance; !got.Equal(want[id]) {
			errs = errors.Join(errs, fmt.Errorf("account %s: balance is %s, want %s", id, got, want[id]))
		}
	}
	return errs
}

// Snapshot is a consistent copy of a whole book.
type Snapshot struct {
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
	Budgets      []Budget      `json:"budgets"`
	Categories   []Category    `json:"categories"`
}

// Snapshot returns a copy of the book taken at a single point in time.
func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Snapshot{
		Accounts: b.listAccounts(),
		Budgets:  b.listBudgets(),
	}
	for _, e := range b.entries() {
		s.Transactions = append(s.Transactions, e.tx)
	}
	for _, c := range b.categories {
		s.Categories = append(s.Categories, c)
	}
	slices.SortFunc(s.Categories, func(x, y Category) int { return strings.Compare(x.ID, y.ID) })
	return s
}

// --- Persistence ---

// commit hands the writes of a committed mutation to the sink. The mutation is
// already applied, so the caller's cancellation does not apply to the sink.
// Changes the sink refuses are kept, and submitted again before the next one.
func (b *Book) commit(ctx context.Context, label string, writes []gateway.Write) error {
	b.unsaved = append(b.unsaved, gateway.Change{Label: label, Writes: writes})
	if err := b.flush(context.WithoutCancel(ctx)); err != nil {
		return &PersistenceError{Op: label, Err: err}
	}
	return nil
}

// flush submits the unsaved changes in order, stopping at the first refusal.
func (b *Book) flush(ctx context.Context) error {
	for len(b.unsaved) > 0 {
		c := b.unsaved[0]
		if err := b.sink.Submit(ctx, c); err != nil {
			if len(b.unsaved) > 1 {
				b.logger.Printf("%d changes not saved, starting with %q: %v", len(b.unsaved), c.Label, err)
			}
			return err
		}
		b.unsaved = b.unsaved[1:]
	}
	b.unsaved = nil
	return nil
}

// Flush submits again the changes the sink refused.
func (b *Book) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.unsaved) == 0 {
		return nil
	}
	label := b.unsaved[0].Label
	if err := b.flush(context.WithoutCancel(ctx)); err != nil {
		return &PersistenceError{Op: label, Err: err}
	}
	return nil
}

// Unsaved returns the labels of the changes the sink refused, in commit order.
// They are only held in memory.
func (b *Book) Unsaved() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	labels := make([]string, len(b.unsaved))
	for i, c := range b.unsaved {
		labels[i] = c.Label
	}
	return labels
}

func (b *Book) create(collection, id string, v any) gateway.Write {
	return gateway.Write{Op: gateway.OpCreate, Collection: b.scope.Collection(collection), ID: id, Doc: document(v)}
}

func (b *Book) update(collection, id string, v any) gateway.Write {
	return gateway.Write{Op: gateway.OpUpdate, Collection: b.scope.Collection(collection), ID: id, Doc: document(v)}
}

func (b *Book) delete(collection, id string) gateway.Write {
	return gateway.Write{Op: gateway.OpDelete, Collection: b.scope.Collection(collection), ID: id}
}

// balances returns the writes that persist the current balance of accounts.
func (b *Book) balances(ids []string) []gateway.Write {
	writes := make([]gateway.Write, 0, len(ids))
	for _, id := range ids {
		a, ok := b.accounts[id]
		if !ok {
			continue
		}
		writes = append(writes, gateway.Write{
			Op:         gateway.OpUpdate,
			Collection: b.scope.Collection(CollAccounts),
			ID:         id,
			Doc:        gateway.Document{"balance": a.Balance.String()},
			Merge:      true,
		})
	}
	return writes
}

// document encodes an entity. Entities are plain JSON objects, failing here is
// a programming error.
func document(v any) gateway.Document {
	doc, err := gateway.ToDocument(v)
	if err != nil {
		panic(fmt.Sprintf("cannot encode %T: %v", v, err))
	}
	return doc
}
