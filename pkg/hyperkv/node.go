package hyperkv

import (
	"context"
	"fmt"
	"strings"

	"github.com/rzbill/hyperkv/internal/clock"
	"github.com/rzbill/hyperkv/internal/messages"
	"github.com/rzbill/hyperkv/internal/trie"
)

// Clock is a causal clock indexed by the store's feed registry.
type Clock = clock.Clock

// Node is one decoded entry.
type Node struct {
	Key     string
	Value   []byte
	Deleted bool

	Feed   FeedKey
	Offset uint64
	// Clock maps registry indices to the feed lengths the writer had seen.
	Clock Clock
	// Feeds is the entry's decode map, which is also its writer's
	// authorization list.
	Feeds []FeedKey
	// Inflate is the offset of the entry carrying Feeds, when that is not
	// this entry.
	Inflate *uint64

	feedIdx int
	tn      *trie.Node
}

// Structural reports whether n is a bookkeeping entry rather than a write.
func (n *Node) Structural() bool { return n.Key == "" && n.Value == nil && !n.Deleted }

// Live reports whether n holds a value.
func (n *Node) Live() bool { return !n.Deleted && !n.Structural() }

// feedsAt is the offset of the entry carrying n's decode map.
func (n *Node) feedsAt() uint64 {
	if n.Inflate != nil {
		return *n.Inflate
	}
	return n.Offset
}

// TrieString renders the entry's trie pointers as position/value -> feed@offset.
func (n *Node) TrieString() string {
	if n.tn == nil || n.tn.Trie.Empty() {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{")
	first := true
	for i := 0; i < n.tn.Trie.Len(); i++ {
		for v := byte(0); v < trie.Width; v++ {
			ptrs := n.tn.Trie.Get(i, v)
			if len(ptrs) == 0 {
				continue
			}
			if !first {
				b.WriteString(" ")
			}
			first = false
			fmt.Fprintf(&b, "%d/%d:", i, v)
			for j, p := range ptrs {
				if j > 0 {
					b.WriteString(",")
				}
				fmt.Fprintf(&b, "%d@%d", p.Feed, p.Offset)
			}
		}
	}
	b.WriteString("}")
	return b.String()
}

// node decodes the entry at (idx, offset) through the node cache.
func (s *Store) node(ctx context.Context, idx int, offset uint64) (*Node, error) {
	p := trie.Pointer{Feed: idx, Offset: offset}
	if n, ok := s.cache.get(p); ok {
		return n, nil
	}
	if offset == 0 {
		return nil, fmt.Errorf("%w: offset 0 is the feed header", ErrNotFound)
	}
	f := s.feedAt(idx)
	if f == nil {
		return nil, fmt.Errorf("%w: feed index %d", ErrNotFound, idx)
	}
	payload, err := f.Get(offset)
	if err != nil {
		return nil, err
	}
	e, err := messages.UnmarshalEntry(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: feed %s entry %d: %v", ErrIntegrity, f.Key().Short(), offset, err)
	}

	n := &Node{
		Key:     e.Key,
		Value:   e.Value,
		Deleted: e.Deleted,
		Feed:    f.Key(),
		Offset:  offset,
		Inflate: e.Inflate,
		feedIdx: idx,
	}
	switch {
	case len(e.Feeds) > 0:
		n.Feeds = e.Feeds
		n.Inflate = nil
	case e.Inflate != nil && *e.Inflate > 0 && *e.Inflate < offset:
		carrier, err := s.node(ctx, idx, *e.Inflate)
		if err != nil {
			return nil, err
		}
		if carrier.Inflate != nil {
			return nil, fmt.Errorf("%w: feed %s entry %d inflates from %d which carries no feeds", ErrIntegrity, f.Key().Short(), offset, *e.Inflate)
		}
		n.Feeds = carrier.Feeds
	default:
		return nil, fmt.Errorf("%w: feed %s entry %d has no decode map", ErrIntegrity, f.Key().Short(), offset)
	}

	global, err := s.register(n.Feeds)
	if err != nil {
		return nil, err
	}
	if len(e.Clock) > len(global) {
		return nil, fmt.Errorf("%w: feed %s entry %d clock longer than its decode map", ErrIntegrity, f.Key().Short(), offset)
	}
	maxIdx := 0
	for _, g := range global {
		if g > maxIdx {
			maxIdx = g
		}
	}
	n.Clock = make(Clock, maxIdx+1)
	for i, c := range e.Clock {
		n.Clock[global[i]] = c
	}
	tr, err := trie.Decode(e.Trie, global)
	if err != nil {
		return nil, fmt.Errorf("feed %s entry %d: %w", f.Key().Short(), offset, err)
	}
	n.tn = &trie.Node{Pointer: p, Key: e.Key, Path: trie.PathOf(e.Key), Trie: tr}

	return s.cache.add(p, n), nil
}
