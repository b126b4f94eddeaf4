package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/finance"
	"github.com/etnz/finance/config"
	"github.com/etnz/finance/gateway"
	"github.com/etnz/finance/outbox"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// app is everything a command needs to work on the configured book.
type app struct {
	cfg        *config.Config
	store      *gateway.Bolt
	box        *outbox.Outbox
	dispatcher *outbox.Dispatcher
	book       *finance.Book
	tags       *finance.TagIndex
}

// openApp loads the configuration, opens the local stores and loads the book.
// Pending changes are delivered before loading, so that the book reflects
// every previous command.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	if a.store, err = gateway.OpenBolt(cfg.BoltPath()); err != nil {
		return nil, err
	}
	if a.box, err = outbox.Open(cfg.OutboxPath()); err != nil {
		a.store.Close()
		return nil, err
	}
	logger := log.New(os.Stderr, "", 0)
	a.dispatcher = outbox.NewDispatcher(a.box, a.store, cfg.RetryPolicy())
	a.dispatcher.SetLogger(logger)
	if _, err := a.dispatcher.Drain(ctx); err != nil {
		log.Printf("warning, some changes are not saved yet, the book may be stale: %v", err)
	}

	a.book = finance.NewBook(cfg.Scope(), finance.WithSink(a.box), finance.WithLogger(logger))
	if err := a.book.Load(ctx, a.store); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to load book %s: %w", cfg.Book, err)
	}
	a.tags = finance.NewTagIndex(cfg.Scope(), gateway.WithRetry(a.store, cfg.RetryPolicy()))
	a.tags.SetLogger(logger)
	if err := a.tags.Load(ctx); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	return a, nil
}

// Close queues the changes the outbox refused, delivers the pending changes
// and closes the stores.
func (a *app) Close(ctx context.Context) error {
	var errs error
	if a.book != nil {
		if err := a.book.Flush(ctx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("changes lost, could not queue %v: %w", a.book.Unsaved(), err))
		}
	}
	if a.dispatcher != nil {
		if _, err := a.dispatcher.Drain(ctx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("some changes are not saved yet, run 'fin sync': %w", err))
		}
	}
	if a.box != nil {
		errs = errors.Join(errs, a.box.Close())
	}
	if a.store != nil {
		errs = errors.Join(errs, a.store.Close())
	}
	return errs
}

// run opens the app, calls f and closes the app. Errors are printed to
// stderr. A persistence error is only a warning: the change stands and is
// delivered later.
func run(ctx context.Context, f func(a *app) error) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	status := subcommands.ExitSuccess
	if err := f(a); err != nil {
		if errors.Is(err, finance.ErrPersistence) {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = subcommands.ExitFailure
		}
	}
	if err := a.Close(context.WithoutCancel(ctx)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return status
}

// accountID resolves an account given by id or by name (case insensitive).
func (a *app) accountID(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if _, ok := a.book.Account(s); ok {
		return s, nil
	}
	var found []string
	for _, acc := range a.book.ListAccounts() {
		if strings.EqualFold(acc.Name, s) {
			found = append(found, acc.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", &finance.NotFoundError{Kind: "account", ID: s}
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("account name %q is ambiguous, use one of the ids %v", s, found)
	}
}

// accountNames maps account ids to names.
func (a *app) accountNames() map[string]string {
	names := make(map[string]string)
	for _, acc := range a.book.ListAccounts() {
		names[acc.ID] = acc.Name
	}
	return names
}

func parseAmount(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// printMarkdown renders markdown to the terminal.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
