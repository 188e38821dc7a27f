// Package auth derives the authorization view of a store.
//
// Authorization is not stored anywhere on its own: a feed admits another by
// writing an entry whose feed list contains the grantee. The authorized set
// is whatever is reachable from the source feed by following the latest feed
// list of every admitted feed.
package auth

import (
	"context"

	"github.com/rzbill/hyperkv/internal/feed"
)

// Lists returns the latest feed list written by key, or nil if the feed is
// unknown or has not written one yet.
type Lists interface {
	LatestFeeds(ctx context.Context, key feed.Key) ([]feed.Key, error)
}

// Set is an authorized feed set in discovery order.
type Set struct {
	order []feed.Key
	index map[feed.Key]struct{}
}

// Has reports whether key is authorized.
func (s *Set) Has(key feed.Key) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[key]
	return ok
}

// Keys returns the authorized feeds, source first.
func (s *Set) Keys() []feed.Key {
	if s == nil {
		return nil
	}
	return append([]feed.Key(nil), s.order...)
}

// Len returns the number of authorized feeds.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Reachable walks feed lists breadth first from source.
func Reachable(ctx context.Context, source feed.Key, lists Lists) (*Set, error) {
	s := &Set{index: map[feed.Key]struct{}{source: {}}, order: []feed.Key{source}}
	for i := 0; i < len(s.order); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keys, err := lists.LatestFeeds(ctx, s.order[i])
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if _, ok := s.index[k]; ok {
				continue
			}
			s.index[k] = struct{}{}
			s.order = append(s.order, k)
		}
	}
	return s, nil
}

// Grant returns list extended with grantee. The second result is false when
// grantee is already present and nothing needs to be written.
func Grant(list []feed.Key, grantee feed.Key) ([]feed.Key, bool) {
	for _, k := range list {
		if k == grantee {
			return list, false
		}
	}
	out := make([]feed.Key, len(list), len(list)+1)
	copy(out, list)
	return append(out, grantee), true
}
