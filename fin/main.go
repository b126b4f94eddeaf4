package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/finance"
	"github.com/etnz/finance/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cmd.Register(commander)

	// Exits when invoked by the shell for completion, installs the completion
	// with COMP_INSTALL=1.
	completion(commander).Complete(name)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the commands and their flags for shell completion.
func completion(commander *subcommands.Commander) *complete.Command {
	kinds := make(predict.Set, 0, len(finance.AccountKinds))
	for _, k := range finance.AccountKinds {
		kinds = append(kinds, string(k))
	}
	types := predict.Set{string(finance.Income), string(finance.Expense), string(finance.Transfer)}

	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: map[string]complete.Predictor{"config": predict.Files("*.yaml")},
	}
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		sub := &complete.Command{Flags: make(map[string]complete.Predictor)}
		fs.VisitAll(func(f *flag.Flag) {
			switch f.Name {
			case "kind":
				sub.Flags[f.Name] = kinds
			case "type":
				sub.Flags[f.Name] = types
			default:
				sub.Flags[f.Name] = predict.Something
			}
		})
		root.Sub[c.Name()] = sub
	})
	return root
}
