package hyperkv

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/hyperkv/internal/trie"
)

func cachedNode(feed int, offset uint64) *Node {
	return &Node{Offset: offset, feedIdx: feed}
}

func TestNodeCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newNodeCache(2)
	p1, p2, p3 := trie.Pointer{Offset: 1}, trie.Pointer{Offset: 2}, trie.Pointer{Offset: 3}
	c.add(p1, cachedNode(0, 1))
	c.add(p2, cachedNode(0, 2))
	_, ok := c.get(p1)
	require.True(t, ok)

	c.add(p3, cachedNode(0, 3))
	require.Equal(t, 2, c.len())
	_, ok = c.get(p2)
	require.False(t, ok, "least recently used entry evicted")
	_, ok = c.get(p1)
	require.True(t, ok)

	first := cachedNode(0, 3)
	require.NotSame(t, first, c.add(p3, first), "existing entry wins")
}

func TestStoreCacheStaysBounded(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	opts.NodeCacheSize = 8
	s, err := Create(ctx, t.TempDir(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for i := 0; i < 50; i++ {
		put(t, s, fmt.Sprintf("k/%d", i), fmt.Sprintf("v%d", i))
	}
	for i := 0; i < 50; i++ {
		requireValue(t, s, fmt.Sprintf("k/%d", i), fmt.Sprintf("v%d", i))
	}
	require.LessOrEqual(t, s.cache.len(), 8)
}
