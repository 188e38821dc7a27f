package trie

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rzbill/hyperkv/internal/kverr"
)

// Pointer addresses one entry.
type Pointer struct {
	Feed   int
	Offset uint64
}

// Bucket holds the pointers for one path position, indexed by value.
type Bucket [Width][]Pointer

// Trie is a sparse list of buckets indexed by path position.
type Trie struct {
	buckets []*Bucket
}

// Len returns the number of positions covered, including empty ones.
func (t *Trie) Len() int {
	if t == nil {
		return 0
	}
	return len(t.buckets)
}

// Empty reports whether t holds no pointers.
func (t *Trie) Empty() bool {
	if t == nil {
		return true
	}
	for _, b := range t.buckets {
		if b == nil {
			continue
		}
		for _, s := range b {
			if len(s) > 0 {
				return false
			}
		}
	}
	return true
}

// Get returns the pointers at position i for value v.
func (t *Trie) Get(i int, v byte) []Pointer {
	if t == nil || i < 0 || i >= len(t.buckets) || t.buckets[i] == nil || int(v) >= Width {
		return nil
	}
	return t.buckets[i][v]
}

// Add records p at [i][v], keeping only the highest offset per feed.
func (t *Trie) Add(i int, v byte, p Pointer) {
	for len(t.buckets) <= i {
		t.buckets = append(t.buckets, nil)
	}
	b := t.buckets[i]
	if b == nil {
		b = &Bucket{}
		t.buckets[i] = b
	}
	slot := b[v]
	j := sort.Search(len(slot), func(k int) bool { return slot[k].Feed >= p.Feed })
	if j < len(slot) && slot[j].Feed == p.Feed {
		if p.Offset > slot[j].Offset {
			slot[j].Offset = p.Offset
		}
		return
	}
	slot = append(slot, Pointer{})
	copy(slot[j+1:], slot[j:])
	slot[j] = p
	b[v] = slot
}

// Feeds returns every feed index referenced by t.
func (t *Trie) Feeds() []int {
	seen := map[int]struct{}{}
	var out []int
	if t == nil {
		return out
	}
	for _, b := range t.buckets {
		if b == nil {
			continue
		}
		for _, s := range b {
			for _, p := range s {
				if _, ok := seen[p.Feed]; !ok {
					seen[p.Feed] = struct{}{}
					out = append(out, p.Feed)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

// Encode serializes t, translating global feed indices with local.
//
// Layout, all uvarints: for each non-empty position: index, value mask, then
// for each value in the mask: count followed by (feed, offset) pairs.
func (t *Trie) Encode(local func(feed int) (int, bool)) ([]byte, error) {
	var out []byte
	if t == nil {
		return out, nil
	}
	for i, b := range t.buckets {
		if b == nil {
			continue
		}
		var mask uint64
		for v, s := range b {
			if len(s) > 0 {
				mask |= 1 << v
			}
		}
		if mask == 0 {
			continue
		}
		out = protowire.AppendVarint(out, uint64(i))
		out = protowire.AppendVarint(out, mask)
		for _, s := range b {
			if len(s) == 0 {
				continue
			}
			out = protowire.AppendVarint(out, uint64(len(s)))
			for _, p := range s {
				idx, ok := local(p.Feed)
				if !ok {
					return nil, fmt.Errorf("trie: feed %d missing from decode map", p.Feed)
				}
				out = protowire.AppendVarint(out, uint64(idx))
				out = protowire.AppendVarint(out, p.Offset)
			}
		}
	}
	return out, nil
}

// Decode parses an encoded trie. decodeMap[i] is the global index of the
// entry-local feed i.
func Decode(buf []byte, decodeMap []int) (*Trie, error) {
	t := &Trie{}
	next := func() (uint64, error) {
		v, n := protowire.ConsumeVarint(buf)
		if n < 0 {
			return 0, fmt.Errorf("%w: trie: %v", kverr.ErrIntegrity, protowire.ParseError(n))
		}
		buf = buf[n:]
		return v, nil
	}
	last := -1
	for len(buf) > 0 {
		idx, err := next()
		if err != nil {
			return nil, err
		}
		if int(idx) <= last || idx > 1<<20 {
			return nil, fmt.Errorf("%w: trie: bucket index %d out of order", kverr.ErrIntegrity, idx)
		}
		last = int(idx)
		mask, err := next()
		if err != nil {
			return nil, err
		}
		if mask >= 1<<Width {
			return nil, fmt.Errorf("%w: trie: bad value mask %b", kverr.ErrIntegrity, mask)
		}
		for v := 0; v < Width; v++ {
			if mask&(1<<v) == 0 {
				continue
			}
			count, err := next()
			if err != nil {
				return nil, err
			}
			for k := uint64(0); k < count; k++ {
				lf, err := next()
				if err != nil {
					return nil, err
				}
				off, err := next()
				if err != nil {
					return nil, err
				}
				if lf >= uint64(len(decodeMap)) {
					return nil, fmt.Errorf("%w: trie: local feed %d outside decode map of %d", kverr.ErrIntegrity, lf, len(decodeMap))
				}
				t.Add(int(idx), byte(v), Pointer{Feed: decodeMap[lf], Offset: off})
			}
		}
	}
	return t, nil
}
