package hyperkv

import (
	"context"
	"fmt"
	"sort"

	"github.com/rzbill/hyperkv/internal/clock"
	"github.com/rzbill/hyperkv/internal/filter"
	"github.com/rzbill/hyperkv/internal/trie"
)

// Status classifies a Get result.
type Status int

const (
	NotFound Status = iota
	Value
	Conflict
)

func (s Status) String() string {
	switch s {
	case NotFound:
		return "not found"
	case Value:
		return "value"
	case Conflict:
		return "conflict"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of Get: the latest entries for a key that no other
// latest entry has seen, ordered by feed key. Tombstones are included.
type Result struct {
	Key   string
	Nodes []*Node
}

// Status is NotFound when every entry is a tombstone (or there are none),
// Value for a single live entry, and Conflict otherwise.
func (r Result) Status() Status {
	live := 0
	for _, n := range r.Nodes {
		if n.Live() {
			live++
		}
	}
	switch {
	case live == 0:
		return NotFound
	case len(r.Nodes) == 1:
		return Value
	default:
		return Conflict
	}
}

// Value returns the value when Status is Value.
func (r Result) Value() ([]byte, bool) {
	if r.Status() != Value {
		return nil, false
	}
	return r.Nodes[0].Value, true
}

// Clock merges the nodes' clocks with the nodes themselves. A write whose
// clock dominates it supersedes every node in r.
func (r Result) Clock() Clock {
	var c Clock
	for _, n := range r.Nodes {
		c = clock.Merge(c, clock.Merge(n.Clock, clock.Point(n.feedIdx, n.Offset)))
	}
	return c
}

// Values returns every live value in result order.
func (r Result) Values() [][]byte {
	var out [][]byte
	for _, n := range r.Nodes {
		if n.Live() {
			out = append(out, n.Value)
		}
	}
	return out
}

// Get resolves key over every authorized feed as of the call.
func (s *Store) Get(ctx context.Context, key string) (Result, error) {
	key = trie.NormalizeKey(key)
	if key == "" {
		return Result{}, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	done, err := s.enter()
	if err != nil {
		return Result{}, err
	}
	defer done()
	v, err := s.snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	found, err := trie.Lookup(ctx, v, key, v.heads(false))
	if err != nil {
		return Result{}, err
	}
	var cands []*Node
	for _, tn := range found {
		n, err := s.node(ctx, tn.Feed, tn.Offset)
		if err != nil {
			return Result{}, err
		}
		if v.auth.Has(n.Feed) {
			cands = append(cands, n)
		}
	}
	return Result{Key: key, Nodes: resolve(cands)}, nil
}

// resolve drops every candidate some other candidate's writer had already
// seen, and orders the rest by feed key.
func resolve(cands []*Node) []*Node {
	var out []*Node
	for _, c := range cands {
		seen := false
		for _, d := range cands {
			if d != c && clock.Saw(d.Clock, c.feedIdx, c.Offset) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Feed.Compare(out[j].Feed); c != 0 {
			return c < 0
		}
		return out[i].Offset < out[j].Offset
	})
	return out
}

// IsAuthorized reports whether key is reachable from the source feed
// through feed lists.
func (s *Store) IsAuthorized(ctx context.Context, key FeedKey) (bool, error) {
	done, err := s.enter()
	if err != nil {
		return false, err
	}
	defer done()
	v, err := s.snapshot(ctx)
	if err != nil {
		return false, err
	}
	return v.auth.Has(key), nil
}

// FeedMeta describes one known feed.
type FeedMeta struct {
	Key        FeedKey
	Length     uint64
	Source     bool
	Local      bool
	Authorized bool
}

// Feeds lists every known feed in registry order, authorized or not.
func (s *Store) Feeds(ctx context.Context) ([]FeedMeta, error) {
	done, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	v, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FeedMeta, len(v.lengths))
	for i, n := range v.lengths {
		k := s.keyAt(i)
		out[i] = FeedMeta{
			Key:        k,
			Length:     n,
			Source:     k == s.source,
			Local:      k == s.local,
			Authorized: v.auth.Has(k),
		}
	}
	return out, nil
}

// Entries decodes every entry after the header of the given feed, keeping
// those f matches. A nil filter keeps everything.
func (s *Store) Entries(ctx context.Context, key FeedKey, f *filter.Filter) ([]*Node, error) {
	done, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	idx, fd, ok := s.lookupFeed(key)
	if !ok {
		return nil, fmt.Errorf("%w: feed %s", ErrNotFound, key.Short())
	}
	length := fd.Len()
	var out []*Node
	for off := uint64(1); off < length; off++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.node(ctx, idx, off)
		if err != nil {
			return nil, err
		}
		in := filter.Input{
			Feed:       n.Feed.String(),
			Offset:     n.Offset,
			Key:        n.Key,
			Value:      n.Value,
			Deleted:    n.Deleted,
			Structural: n.Structural(),
			Clock:      n.Clock,
		}
		if f.Match(in) {
			out = append(out, n)
		}
	}
	return out, nil
}
