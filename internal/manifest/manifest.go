// Package manifest persists the identity and feed registry of a store.
package manifest

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/rzbill/hyperkv/internal/feed"
	"github.com/rzbill/hyperkv/internal/kverr"
	pebblestore "github.com/rzbill/hyperkv/internal/storage/pebble"
)

// Manifest holds store metadata. Feeds is the store-global registry: a
// feed's index in it is the index used by clocks and trie pointers, so it is
// only ever appended to.
type Manifest struct {
	Source      []byte   `cbor:"1,keyasint"`
	Local       []byte   `cbor:"2,keyasint"`
	LocalSecret []byte   `cbor:"3,keyasint"`
	Feeds       [][]byte `cbor:"4,keyasint"`
	CreatedAtMs int64    `cbor:"5,keyasint"`
}

var manifestKey = []byte("store/manifest")

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// New returns a manifest for a fresh store.
func New(source, local feed.Key, secret []byte) Manifest {
	m := Manifest{
		Source:      append([]byte(nil), source[:]...),
		Local:       append([]byte(nil), local[:]...),
		LocalSecret: append([]byte(nil), secret...),
		CreatedAtMs: time.Now().UnixMilli(),
	}
	m.Feeds = append(m.Feeds, m.Source)
	if local != source {
		m.Feeds = append(m.Feeds, m.Local)
	}
	return m
}

// Load reads the manifest. The second result is false when the store has
// none yet.
func Load(db *pebblestore.DB) (Manifest, bool, error) {
	b, err := db.Get(manifestKey)
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, err
	}
	var m Manifest
	if err := cbor.Unmarshal(b, &m); err != nil {
		return Manifest{}, false, fmt.Errorf("%w: manifest: %v", kverr.ErrIntegrity, err)
	}
	return m, true, nil
}

// Save writes the manifest.
func Save(db *pebblestore.DB, m Manifest) error {
	b, err := encMode.Marshal(m)
	if err != nil {
		return err
	}
	return db.Set(manifestKey, b)
}

// Keys decodes the registry.
func (m Manifest) Keys() ([]feed.Key, error) {
	out := make([]feed.Key, 0, len(m.Feeds))
	for _, b := range m.Feeds {
		k, err := feed.KeyFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("%w: manifest: %v", kverr.ErrIntegrity, err)
		}
		out = append(out, k)
	}
	return out, nil
}

// SourceKey decodes the source key.
func (m Manifest) SourceKey() (feed.Key, error) { return feed.KeyFromBytes(m.Source) }

// LocalKey decodes the local key.
func (m Manifest) LocalKey() (feed.Key, error) { return feed.KeyFromBytes(m.Local) }
