package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/finance"
	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
)

type accountAddCmd struct {
	kind    string
	initial string
}

func (*accountAddCmd) Name() string     { return "account-add" }
func (*accountAddCmd) Synopsis() string { return "open an account" }
func (*accountAddCmd) Usage() string {
	return `fin account-add [-kind <kind>] [-initial <amount>] <name>

  Opens an account. The kind is one of cash, checking, savings, credit,
  investment or other (the default).
`
}

func (c *accountAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "Account kind.")
	f.StringVar(&c.initial, "initial", "0", "Initial balance.")
}

func (c *accountAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	name := strings.Join(f.Args(), " ")
	if name == "" {
		fmt.Fprintln(os.Stderr, "Error: missing account name.")
		return subcommands.ExitUsageError
	}
	initial, err := parseAmount(c.initial)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app) error {
		acc, err := a.book.CreateAccount(ctx, name, finance.AccountKind(c.kind), initial)
		if acc.ID != "" {
			fmt.Printf("Opened %s account %q (%s) with %s\n", acc.Kind, acc.Name, acc.ID, renderer.Amount(acc.Balance, a.cfg.Currency))
		}
		return err
	})
}

type accountRmCmd struct{}

func (*accountRmCmd) Name() string     { return "account-rm" }
func (*accountRmCmd) Synopsis() string { return "delete an account and its transactions" }
func (*accountRmCmd) Usage() string {
	return `fin account-rm <account>

  Deletes an account, given by name or id, and every transaction referencing
  it. Transfers to or from other accounts are reversed on those accounts.
`
}

func (*accountRmCmd) SetFlags(*flag.FlagSet) {}

func (*accountRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expecting exactly one account.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app) error {
		id, err := a.accountID(f.Arg(0))
		if err != nil {
			return err
		}
		n := len(a.book.ListTransactions(finance.ByAccount(id)))
		err = a.book.DeleteAccount(ctx, id)
		if err == nil || errors.Is(err, finance.ErrPersistence) {
			fmt.Printf("Deleted account %s and %d transactions\n", f.Arg(0), n)
		}
		return err
	})
}

type accountsCmd struct{}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts and balances" }
func (*accountsCmd) Usage() string {
	return `fin accounts

  Lists the accounts with their balance.
`
}

func (*accountsCmd) SetFlags(*flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		printMarkdown(renderer.Accounts(a.book.ListAccounts(), a.cfg.Currency))
		return nil
	})
}
