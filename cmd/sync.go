package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
)

type syncCmd struct {
	retryFailed bool
	purge       bool
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "deliver pending changes and show what is not saved" }
func (*syncCmd) Usage() string {
	return `fin sync [-retry-failed] [-purge]

  Queues the changes the outbox refused, delivers the pending changes of the
  outbox, writes the unsynced tags again, and reports what is still not saved.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.retryFailed, "retry-failed", false, "Queue the changes given up after too many attempts again.")
	f.BoolVar(&c.purge, "purge", false, "Forget the delivered changes.")
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if c.retryFailed {
			failed, err := a.box.Failed(ctx)
			if err != nil {
				return err
			}
			for _, e := range failed {
				if err := a.box.Requeue(ctx, e.ID); err != nil {
					return err
				}
			}
		}
		flushErr := a.book.Flush(ctx)
		sent, drainErr := a.dispatcher.Drain(ctx)
		if sent > 0 {
			fmt.Printf("Delivered %d changes\n", sent)
		}
		resyncErr := a.tags.Resync(ctx)
		if c.purge {
			n, err := a.box.Purge(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Purged %d delivered changes\n", n)
		}

		stats, err := a.box.Status(ctx)
		if err != nil {
			return err
		}
		failed, err := a.box.Failed(ctx)
		if err != nil {
			return err
		}
		printMarkdown(renderer.Sync(stats, failed, a.book.Unsaved(), a.tags.Unsynced()))
		return errors.Join(flushErr, drainErr, resyncErr)
	})
}

type checkCmd struct{}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "verify that balances match the transactions" }
func (*checkCmd) Usage() string {
	return `fin check

  Loads the book, correcting stored balances that drifted, then verifies that
  every balance equals its initial balance plus its transactions.
`
}

func (*checkCmd) SetFlags(*flag.FlagSet) {}

func (*checkCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if err := a.book.Check(); err != nil {
			return err
		}
		fmt.Printf("%d accounts and %d transactions are consistent\n", len(a.book.ListAccounts()), len(a.book.ListTransactions()))
		return nil
	})
}
