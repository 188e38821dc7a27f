package feed

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/rzbill/hyperkv/internal/kverr"
	pebblestore "github.com/rzbill/hyperkv/internal/storage/pebble"
)

// HashSize is the length of a chain hash.
const HashSize = sha256.Size

// Record is a single signed feed record as stored and as replicated.
type Record struct {
	Offset    uint64
	Payload   []byte
	Signature []byte
}

// Feed provides append-only operations for one writer's log.
type Feed struct {
	db     *pebblestore.DB
	key    Key
	secret ed25519.PrivateKey

	mu       sync.Mutex
	length   uint64
	head     [HashSize]byte
	notifyCh chan struct{}
}

// Open initializes a Feed and loads its length and head hash from metadata
// (if any). A nil secret opens the feed read-only.
func Open(db *pebblestore.DB, key Key, secret ed25519.PrivateKey) (*Feed, error) {
	if secret != nil {
		pub, ok := secret.Public().(ed25519.PublicKey)
		if !ok || !bytes.Equal(pub, key[:]) {
			return nil, fmt.Errorf("%w: secret does not match feed %s", kverr.ErrIntegrity, key.Short())
		}
	}
	f := &Feed{db: db, key: key, secret: secret, notifyCh: make(chan struct{})}
	meta, err := db.Get(KeyMeta(key))
	switch {
	case err == nil:
		if len(meta) != 8+HashSize {
			return nil, fmt.Errorf("%w: feed %s metadata has %d bytes", kverr.ErrIntegrity, key.Short(), len(meta))
		}
		f.length = binary.BigEndian.Uint64(meta[:8])
		copy(f.head[:], meta[8:])
	case pebblestore.IsNotFound(err):
	default:
		return nil, err
	}
	return f, nil
}

// Key returns the feed's public key.
func (f *Feed) Key() Key { return f.key }

// Writable reports whether this process holds the feed's secret key.
func (f *Feed) Writable() bool { return f.secret != nil }

// Len returns the number of records currently in the feed.
func (f *Feed) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.length
}

func chainHash(key Key, offset uint64, prev [HashSize]byte, payload []byte) [HashSize]byte {
	h := sha256.New()
	h.Write(key[:])
	var off [8]byte
	binary.BigEndian.PutUint64(off[:], offset)
	h.Write(off[:])
	h.Write(prev[:])
	h.Write(payload)
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Append signs and appends payload, returning its offset.
func (f *Feed) Append(ctx context.Context, payload []byte) (uint64, error) {
	if f.secret == nil {
		return 0, fmt.Errorf("%w: %w: %s", kverr.ErrIntegrity, kverr.ErrNotWritable, f.key.Short())
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	offset := f.length
	hash := chainHash(f.key, offset, f.head, payload)
	sig := ed25519.Sign(f.secret, hash[:])
	if err := f.commitLocked(ctx, Record{Offset: offset, Payload: payload, Signature: sig}, hash); err != nil {
		return 0, err
	}
	return offset, nil
}

// Ingest verifies a record produced by the feed's owner and appends it. A
// record at an offset already held is accepted (returning false) only if it
// is identical to the stored one; anything else is an integrity failure.
func (f *Feed) Ingest(ctx context.Context, rec Record) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rec.Offset < f.length {
		have, err := f.recordLocked(rec.Offset)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(have.Signature, rec.Signature) || !bytes.Equal(have.Payload, rec.Payload) {
			return false, fmt.Errorf("%w: feed %s forks at offset %d", kverr.ErrIntegrity, f.key.Short(), rec.Offset)
		}
		return false, nil
	}
	if rec.Offset > f.length {
		return false, fmt.Errorf("%w: feed %s expected offset %d, got %d", kverr.ErrIntegrity, f.key.Short(), f.length, rec.Offset)
	}
	hash := chainHash(f.key, rec.Offset, f.head, rec.Payload)
	if !ed25519.Verify(f.key[:], hash[:], rec.Signature) {
		return false, fmt.Errorf("%w: feed %s bad signature at offset %d", kverr.ErrIntegrity, f.key.Short(), rec.Offset)
	}
	if err := f.commitLocked(ctx, rec, hash); err != nil {
		return false, err
	}
	return true, nil
}

// commitLocked writes the record and the new metadata in one batch so a
// record is never visible without its chain head.
func (f *Feed) commitLocked(ctx context.Context, rec Record, hash [HashSize]byte) error {
	b := f.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeyEntry(f.key, rec.Offset), EncodeRecord(rec.Signature, rec.Payload), nil); err != nil {
		return err
	}
	var meta [8 + HashSize]byte
	binary.BigEndian.PutUint64(meta[:8], rec.Offset+1)
	copy(meta[8:], hash[:])
	if err := b.Set(KeyMeta(f.key), meta[:], nil); err != nil {
		return err
	}
	if err := f.db.CommitBatch(ctx, b); err != nil {
		return err
	}
	f.length = rec.Offset + 1
	f.head = hash
	close(f.notifyCh)
	f.notifyCh = make(chan struct{})
	return nil
}

// Get returns the payload at offset.
func (f *Feed) Get(offset uint64) ([]byte, error) {
	rec, err := f.Record(offset)
	if err != nil {
		return nil, err
	}
	return rec.Payload, nil
}

// Record returns the full signed record at offset.
func (f *Feed) Record(offset uint64) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recordLocked(offset)
}

func (f *Feed) recordLocked(offset uint64) (Record, error) {
	if offset >= f.length {
		return Record{}, fmt.Errorf("%w: feed %s offset %d (length %d)", kverr.ErrNotFound, f.key.Short(), offset, f.length)
	}
	raw, err := f.db.Get(KeyEntry(f.key, offset))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return Record{}, fmt.Errorf("%w: feed %s record %d missing from storage", kverr.ErrIntegrity, f.key.Short(), offset)
		}
		return Record{}, err
	}
	dec, ok := DecodeRecord(raw)
	if !ok {
		return Record{}, fmt.Errorf("%w: feed %s record %d fails checksum", kverr.ErrIntegrity, f.key.Short(), offset)
	}
	return Record{Offset: offset, Payload: dec.Payload, Signature: dec.Signature}, nil
}

// Ready blocks until the header record (offset 0) exists or ctx is done.
func (f *Feed) Ready(ctx context.Context) error {
	for {
		f.mu.Lock()
		n, ch := f.length, f.notifyCh
		f.mu.Unlock()
		if n > 0 {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
