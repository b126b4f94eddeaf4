// Package cmd implements the CLI application to manage a book.
package cmd

import (
	"flag"

	"github.com/google/subcommands"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "", "Path to the configuration file. Defaults to fin.yaml if it exists.")

// Commands lists every command of the fin tool, by group.
var Commands = map[string][]subcommands.Command{
	"accounts": {
		&accountAddCmd{},
		&accountRmCmd{},
		&accountsCmd{},
	},
	"transactions": {
		&txAddCmd{},
		&txEditCmd{},
		&txRmCmd{},
		&txCmd{},
	},
	"budgets": {
		&budgetAddCmd{},
		&budgetRmCmd{},
		&budgetsCmd{},
	},
	"tags": {
		&tagAddCmd{},
		&tagEditCmd{},
		&tagRmCmd{},
		&tagsCmd{},
	},
	"maintenance": {
		&syncCmd{},
		&checkCmd{},
		&serveCmd{},
		&topicCmd{},
	},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for group, cmds := range Commands {
		for _, cmd := range cmds {
			c.Register(cmd, group)
		}
	}
}
