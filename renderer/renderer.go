// Package renderer formats books as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/finance"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

// funcs returns the template functions formatting amounts in currency.
func funcs(currency string) template.FuncMap {
	return template.FuncMap{
		"amount":  func(v decimal.Decimal) string { return Amount(v, currency) },
		"signed":  func(v decimal.Decimal) string { return SignedAmount(v, currency) },
		"percent": func(v decimal.Decimal) string { return v.StringFixed(1) + "%" },
		"cell":    cell,
	}
}

// cell escapes a value for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

type accountsView struct {
	Accounts []finance.Account
	Total    decimal.Decimal
}

// Accounts renders the accounts with their balances and the total.
func Accounts(accounts []finance.Account, currency string) string {
	v := accountsView{Accounts: accounts}
	for _, a := range accounts {
		v.Total = v.Total.Add(a.Balance)
	}
	partials := map[string]string{
		"accounts_table": "accounts_table.md",
	}
	return renderTemplate("accounts", "accounts.md", partials, funcs(currency), v)
}

type transactionRow struct {
	ID, Date, Type, Account, Category, Amount, Description string
}

type transactionsView struct {
	Title string
	Rows  []transactionRow
}

// Transactions renders transactions as a table. names maps account ids to
// account names, unknown ids are printed as is. From the point of view of
// account (if not empty), amounts are signed.
func Transactions(title string, txs []finance.Transaction, names map[string]string, account, currency string) string {
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}
	v := transactionsView{Title: title}
	for _, tx := range txs {
		row := transactionRow{
			ID:          tx.ID,
			Date:        tx.Date.String(),
			Type:        string(tx.Type),
			Account:     cell(name(tx.AccountID)),
			Category:    cell(tx.CategoryID),
			Amount:      Amount(tx.Amount, currency),
			Description: cell(tx.Description),
		}
		if tx.Type == finance.Transfer {
			row.Account = cell(name(tx.AccountID) + " → " + name(tx.ToAccountID))
		}
		if account != "" {
			row.Amount = SignedAmount(finance.Effect(tx, account), currency)
		}
		v.Rows = append(v.Rows, row)
	}
	partials := map[string]string{
		"transactions_table": "transactions_table.md",
	}
	return renderTemplate("transactions", "transactions.md", partials, funcs(currency), v)
}

// BudgetRow is a budget with its progress.
type BudgetRow struct {
	ID       string
	Category string
	Period   string
	finance.BudgetProgress
}

type budgetsView struct {
	Rows []budgetRow
}

type budgetRow struct {
	BudgetRow
	Overspent bool
}

// Budgets renders budgets with their progress.
func Budgets(rows []BudgetRow, currency string) string {
	var v budgetsView
	for _, r := range rows {
		r.Category = cell(r.Category)
		v.Rows = append(v.Rows, budgetRow{BudgetRow: r, Overspent: r.BudgetProgress.Over()})
	}
	return renderTemplate("budgets", "budgets.md", nil, funcs(currency), v)
}

// Tags renders tags.
func Tags(tags []finance.Tag) string {
	return renderTemplate("tags", "tags.md", nil, funcs(""), struct{ Tags []finance.Tag }{tags})
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, fm template.FuncMap, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(fm).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			content, err = fs.ReadFile(templates, "templates/"+file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
