package hyperkv

import (
	"context"

	"github.com/rzbill/hyperkv/internal/auth"
	"github.com/rzbill/hyperkv/internal/trie"
)

// view is a consistent read snapshot: the length of every feed and the
// authorized set, both captured once. Entries appended afterwards are
// invisible to it.
type view struct {
	s       *Store
	lengths []uint64
	auth    *auth.Set
}

func (s *Store) snapshot(ctx context.Context) (*view, error) {
	v := &view{s: s, lengths: s.lengths()}
	set, err := auth.Reachable(ctx, s.source, v)
	if err != nil {
		return nil, err
	}
	v.auth = set
	return v, nil
}

func (v *view) length(idx int) uint64 {
	if idx < 0 || idx >= len(v.lengths) {
		return 0
	}
	return v.lengths[idx]
}

// latest returns the newest entry of feed idx in the snapshot, or nil when
// the feed holds only its header.
func (v *view) latest(ctx context.Context, idx int) (*Node, error) {
	n := v.length(idx)
	if n < 2 {
		return nil, nil
	}
	return v.s.node(ctx, idx, n-1)
}

// LatestFeeds implements auth.Lists.
func (v *view) LatestFeeds(ctx context.Context, key FeedKey) ([]FeedKey, error) {
	idx, _, ok := v.s.lookupFeed(key)
	if !ok {
		return nil, nil
	}
	n, err := v.latest(ctx, idx)
	if err != nil || n == nil {
		return nil, err
	}
	return n.Feeds, nil
}

// Node implements trie.Graph. Entries outside the snapshot read as missing.
func (v *view) Node(ctx context.Context, p trie.Pointer) (*trie.Node, error) {
	if p.Offset == 0 || p.Offset >= v.length(p.Feed) {
		return nil, nil
	}
	n, err := v.s.node(ctx, p.Feed, p.Offset)
	if err != nil {
		return nil, err
	}
	return n.tn, nil
}

// heads returns the latest entry of every authorized feed. withLocal adds
// the local feed even when it is not authorized yet, so a writer's own
// history stays indexed.
func (v *view) heads(withLocal bool) []trie.Pointer {
	var out []trie.Pointer
	for idx, n := range v.lengths {
		if n < 2 {
			continue
		}
		key := v.s.keyAt(idx)
		if v.auth.Has(key) || (withLocal && idx == v.s.localIdx) {
			out = append(out, trie.Pointer{Feed: idx, Offset: n - 1})
		}
	}
	return out
}
