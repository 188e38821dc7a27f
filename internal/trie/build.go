package trie

import "context"

// Build computes the trie for a new entry with the given key, written by a
// writer whose view is heads (the latest entry of every visible feed).
func Build(ctx context.Context, g Graph, key string, heads []Pointer) (*Trie, error) {
	b := &builder{
		g:       g,
		key:     NormalizeKey(key),
		path:    PathOf(key),
		out:     &Trie{},
		visited: map[Pointer]struct{}{},
	}
	for _, h := range heads {
		if err := b.visit(ctx, h); err != nil {
			return nil, err
		}
	}
	return b.out, nil
}

type builder struct {
	g       Graph
	key     string
	path    Path
	out     *Trie
	visited map[Pointer]struct{}
}

func (b *builder) visit(ctx context.Context, p Pointer) error {
	if _, ok := b.visited[p]; ok {
		return nil
	}
	b.visited[p] = struct{}{}
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := b.g.Node(ctx, p)
	if err != nil || n == nil {
		return err
	}

	i := Diverge(n.Path, b.path)
	if i < 0 {
		// Same path: the new entry supersedes n and inherits its siblings.
		for j := 0; j < len(b.path); j++ {
			b.copySiblings(n, j)
		}
		return nil
	}
	for j := 0; j < i; j++ {
		b.copySiblings(n, j)
	}
	if !n.Structural() {
		b.out.Add(i, n.Path[i], n.Pointer)
	}
	b.copySiblings(n, i)
	for _, next := range n.Trie.Get(i, b.path[i]) {
		if err := b.visit(ctx, next); err != nil {
			return err
		}
	}
	return nil
}

// copySiblings copies n's pointers at position j for every value other than
// the new path's own value at j.
func (b *builder) copySiblings(n *Node, j int) {
	for v := byte(0); v < Width; v++ {
		if v == b.path[j] {
			continue
		}
		for _, p := range n.Trie.Get(j, v) {
			b.out.Add(j, v, p)
		}
	}
}
