package trie

import "context"

// Node is the trie-relevant view of one entry.
type Node struct {
	Pointer
	Key  string
	Path Path
	Trie *Trie
}

// Structural reports whether n is a bookkeeping entry with no key.
func (n *Node) Structural() bool { return n.Key == "" }

// Graph resolves pointers to nodes. Node returns (nil, nil) for entries that
// are not available locally, for example not yet replicated.
type Graph interface {
	Node(ctx context.Context, p Pointer) (*Node, error)
}
