package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/hyperkv/internal/feed"
)

type staticLists map[feed.Key][]feed.Key

func (s staticLists) LatestFeeds(_ context.Context, k feed.Key) ([]feed.Key, error) {
	return s[k], nil
}

func key(b byte) feed.Key {
	var k feed.Key
	k[0] = b
	return k
}

func TestReachableTransitive(t *testing.T) {
	a, b, c, d := key(1), key(2), key(3), key(4)
	lists := staticLists{
		a: {a, b},
		b: {a, b, c},
		d: {d, a},
	}
	s, err := Reachable(context.Background(), a, lists)
	require.NoError(t, err)
	require.Equal(t, []feed.Key{a, b, c}, s.Keys())
	require.True(t, s.Has(c))
	require.False(t, s.Has(d), "d admits a, not the other way round")
}

func TestReachableSourceOnly(t *testing.T) {
	a := key(1)
	s, err := Reachable(context.Background(), a, staticLists{})
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	require.True(t, s.Has(a))
}

func TestGrant(t *testing.T) {
	a, b := key(1), key(2)
	list := []feed.Key{a}
	out, changed := Grant(list, b)
	require.True(t, changed)
	require.Equal(t, []feed.Key{a, b}, out)
	require.Equal(t, []feed.Key{a}, list, "input untouched")

	_, changed = Grant(out, a)
	require.False(t, changed)
}
