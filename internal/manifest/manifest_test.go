package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/hyperkv/internal/feed"
	pebblestore "github.com/rzbill/hyperkv/internal/storage/pebble"
)

func TestSaveLoad(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, ok, err := Load(db)
	require.NoError(t, err)
	require.False(t, ok)

	src, _, err := feed.Generate()
	require.NoError(t, err)
	local, secret, err := feed.Generate()
	require.NoError(t, err)

	m := New(src, local, secret)
	require.NoError(t, Save(db, m))

	got, ok, err := Load(db)
	require.NoError(t, err)
	require.True(t, ok)
	keys, err := got.Keys()
	require.NoError(t, err)
	require.Equal(t, []feed.Key{src, local}, keys)
	require.Equal(t, []byte(secret), got.LocalSecret)
	lk, err := got.LocalKey()
	require.NoError(t, err)
	require.Equal(t, local, lk)
}

func TestNewSameSourceAndLocal(t *testing.T) {
	k, sk, err := feed.Generate()
	require.NoError(t, err)
	m := New(k, k, sk)
	require.Len(t, m.Feeds, 1)
}
