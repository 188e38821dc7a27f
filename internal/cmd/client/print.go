package client

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rzbill/hyperkv/internal/filter"
	"github.com/rzbill/hyperkv/pkg/hyperkv"
)

// PrintFeeds writes every feed of s in registry order, tagging the source
// and local feeds, followed by the entries f keeps.
func PrintFeeds(ctx context.Context, w io.Writer, s *hyperkv.Store, name string, f *filter.Filter) error {
	feeds, err := s.Feeds(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "===== db %s =====\n", name)
	fmt.Fprintln(w, "feeds:", len(feeds))
	for i, m := range feeds {
		var tags []string
		if m.Source {
			tags = append(tags, "(source)")
		}
		if m.Local {
			tags = append(tags, "(local)")
		}
		if !m.Authorized {
			tags = append(tags, "(unauthorized)")
		}
		fmt.Fprintf(w, "\nfeed %d %s %s\n\n", i, m.Key, strings.Join(tags, " "))

		entries, err := s.Entries(ctx, m.Key, f)
		if err != nil {
			return err
		}
		for _, n := range entries {
			printEntry(w, n)
		}
	}
	return nil
}

func printEntry(w io.Writer, n *hyperkv.Node) {
	if n.Structural() {
		fmt.Fprintln(w, n.Offset, "inflate entry")
	} else {
		fmt.Fprintln(w, n.Offset)
	}
	fmt.Fprintln(w, "  key:", n.Key)
	if n.Value == nil {
		fmt.Fprintln(w, "  value: null")
	} else {
		fmt.Fprintln(w, "  value:", string(n.Value))
	}
	fmt.Fprintln(w, "  deleted:", n.Deleted)
	fmt.Fprintln(w, "  trie:", n.TrieString())
	fmt.Fprintln(w, "  clock:", []uint64(n.Clock))
	if n.Inflate != nil {
		fmt.Fprintln(w, "  inflate:", *n.Inflate)
	} else {
		fmt.Fprintln(w, "  feeds:")
		for i, k := range n.Feeds {
			fmt.Fprintf(w, "    - %d: %s\n", i, k)
		}
	}
	fmt.Fprintln(w)
}
