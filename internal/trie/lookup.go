package trie

import "context"

// Lookup returns every entry reachable from heads whose key equals key. The
// result may contain several entries of different feeds, and entries that
// supersede each other; ordering them is up to the caller.
func Lookup(ctx context.Context, g Graph, key string, heads []Pointer) ([]*Node, error) {
	key = NormalizeKey(key)
	path := PathOf(key)
	visited := map[Pointer]struct{}{}
	var out []*Node

	var visit func(p Pointer) error
	visit = func(p Pointer) error {
		if _, ok := visited[p]; ok {
			return nil
		}
		visited[p] = struct{}{}
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := g.Node(ctx, p)
		if err != nil || n == nil {
			return err
		}
		i := Diverge(n.Path, path)
		if i < 0 {
			if !n.Structural() && n.Key == key {
				out = append(out, n)
			}
			return nil
		}
		for _, next := range n.Trie.Get(i, path[i]) {
			if err := visit(next); err != nil {
				return err
			}
		}
		return nil
	}

	for _, h := range heads {
		if err := visit(h); err != nil {
			return nil, err
		}
	}
	return out, nil
}
