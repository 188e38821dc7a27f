package hyperkv

import (
	"container/list"
	"sync"

	"github.com/rzbill/hyperkv/internal/trie"
)

// DefaultNodeCacheSize is the number of decoded entries kept when
// Options.NodeCacheSize is zero.
const DefaultNodeCacheSize = 4096

// nodeCache keeps the most recently used decoded entries. Entries are
// immutable, so a cached node never goes stale.
type nodeCache struct {
	mu    sync.Mutex
	size  int
	order *list.List
	items map[trie.Pointer]*list.Element
}

type cached struct {
	p trie.Pointer
	n *Node
}

func newNodeCache(size int) *nodeCache {
	if size <= 0 {
		size = DefaultNodeCacheSize
	}
	return &nodeCache{size: size, order: list.New(), items: map[trie.Pointer]*list.Element{}}
}

func (c *nodeCache) get(p trie.Pointer) (*Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[p]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(cached).n, true
}

// add caches n unless p is already cached, and returns the cached node.
func (c *nodeCache) add(p trie.Pointer, n *Node) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[p]; ok {
		c.order.MoveToFront(el)
		return el.Value.(cached).n
	}
	c.items[p] = c.order.PushFront(cached{p: p, n: n})
	for c.order.Len() > c.size {
		old := c.order.Remove(c.order.Back()).(cached)
		delete(c.items, old.p)
	}
	return n
}

func (c *nodeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
