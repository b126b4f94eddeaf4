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

type tagAddCmd struct {
	id    string
	color string
}

func (*tagAddCmd) Name() string     { return "tag-add" }
func (*tagAddCmd) Synopsis() string { return "create a tag" }
func (*tagAddCmd) Usage() string {
	return `fin tag-add [-id <id>] [-color <color>] <name>

  Creates a tag. Without -id, the id is derived from the current time.
`
}

func (c *tagAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Tag id.")
	f.StringVar(&c.color, "color", "", "Tag color.")
}

func (c *tagAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		t, err := a.tags.Create(ctx, finance.TagDraft{ID: c.id, Name: strings.Join(f.Args(), " "), Color: c.color})
		if t.ID != "" {
			fmt.Printf("Tag %q (%s)\n", t.Name, t.ID)
		}
		return err
	})
}

type tagEditCmd struct {
	name  string
	color string
}

func (*tagEditCmd) Name() string     { return "tag-edit" }
func (*tagEditCmd) Synopsis() string { return "rename or recolor a tag" }
func (*tagEditCmd) Usage() string {
	return `fin tag-edit [-name <name>] [-color <color>] <id>
`
}

func (c *tagEditCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "New name.")
	f.StringVar(&c.color, "color", "", "New color.")
}

func (c *tagEditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expecting exactly one tag id.")
		return subcommands.ExitUsageError
	}
	var patch finance.TagPatch
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			patch.Name = &c.name
		case "color":
			patch.Color = &c.color
		}
	})
	return run(ctx, func(a *app) error {
		_, err := a.tags.Update(ctx, f.Arg(0), patch)
		return err
	})
}

type tagRmCmd struct{}

func (*tagRmCmd) Name() string     { return "tag-rm" }
func (*tagRmCmd) Synopsis() string { return "delete tags" }
func (*tagRmCmd) Usage() string {
	return `fin tag-rm <id>...
`
}

func (*tagRmCmd) SetFlags(*flag.FlagSet) {}

func (*tagRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		var errs error
		for _, id := range f.Args() {
			errs = errors.Join(errs, a.tags.Delete(ctx, id))
		}
		return errs
	})
}

type tagsCmd struct{}

func (*tagsCmd) Name() string     { return "tags" }
func (*tagsCmd) Synopsis() string { return "list tags" }
func (*tagsCmd) Usage() string {
	return `fin tags
`
}

func (*tagsCmd) SetFlags(*flag.FlagSet) {}

func (*tagsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		printMarkdown(renderer.Tags(a.tags.List()))
		return nil
	})
}
