package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/finance/outbox"
)

// Sync renders the synchronization state of a book: the outbox counters, the
// changes given up, the changes that could not be queued, and the tags whose
// last write failed.
func Sync(stats outbox.Stats, failed []outbox.Entry, unsaved, unsynced []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Sync\n\n")
	fmt.Fprintf(&b, "| Pending | Failed | Delivered |\n|--------:|-------:|----------:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d |\n", stats.Pending, stats.Failed, stats.Done)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Failed changes\n\n| ID | Change | Attempts | Error |\n|---:|:-------|---------:|:------|\n")
		for _, e := range failed {
			fmt.Fprintf(w, "| %d | %s | %d | %s |\n", e.ID, cell(e.Label), e.Attempts, cell(e.LastError))
		}
		return len(failed) > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Changes not queued\n\n")
		for _, label := range unsaved {
			fmt.Fprintf(w, "- %s\n", label)
		}
		return len(unsaved) > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Unsynced tags\n\n")
		for _, id := range unsynced {
			fmt.Fprintf(w, "- `%s`\n", id)
		}
		return len(unsynced) > 0
	})

	if stats.Pending == 0 && stats.Failed == 0 && len(unsaved) == 0 && len(unsynced) == 0 {
		fmt.Fprintf(&b, "\nEverything is saved.\n")
	}
	return b.String()
}
