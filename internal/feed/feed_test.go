package feed

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/rzbill/hyperkv/internal/kverr"
	pebblestore "github.com/rzbill/hyperkv/internal/storage/pebble"
)

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newWritable(t *testing.T, db *pebblestore.DB) (*Feed, ed25519.PrivateKey) {
	t.Helper()
	k, sk, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	f, err := Open(db, k, sk)
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	return f, sk
}

func TestAppendAssignsSequential(t *testing.T) {
	f, _ := newWritable(t, newTestDB(t))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		off, err := f.Append(ctx, []byte{byte(i)})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if off != uint64(i) {
			t.Fatalf("want offset %d, got %d", i, off)
		}
	}
	if f.Len() != 3 {
		t.Fatalf("want len 3, got %d", f.Len())
	}
	got, err := f.Get(1)
	if err != nil || len(got) != 1 || got[0] != 1 {
		t.Fatalf("get(1) = %v, %v", got, err)
	}
	if _, err := f.Get(3); !errors.Is(err, kverr.ErrNotFound) {
		t.Fatalf("expected not found past end, got %v", err)
	}
}

func TestAppendRequiresSecret(t *testing.T) {
	db := newTestDB(t)
	k, _, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	f, err := Open(db, k, nil)
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	_, err = f.Append(context.Background(), []byte("x"))
	if !errors.Is(err, kverr.ErrIntegrity) || !errors.Is(err, kverr.ErrNotWritable) {
		t.Fatalf("expected not writable integrity error, got %v", err)
	}
}

func TestOpenRejectsMismatchedSecret(t *testing.T) {
	db := newTestDB(t)
	k, _, _ := Generate()
	_, other, _ := Generate()
	if _, err := Open(db, k, other); !errors.Is(err, kverr.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestAppendDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	k, sk, _ := Generate()
	f, err := Open(db, k, sk)
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	ctx := context.Background()
	if _, err := f.Append(ctx, []byte("x")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	f2, err := Open(db2, k, sk)
	if err != nil {
		t.Fatalf("reopen feed: %v", err)
	}
	off, err := f2.Append(ctx, []byte("y"))
	if err != nil {
		t.Fatalf("append2: %v", err)
	}
	if off != 1 {
		t.Fatalf("expected offset 1 after reopen, got %d", off)
	}

	// The chain survives the reopen: a replica verifies both records.
	replica, err := Open(newTestDB(t), k, nil)
	if err != nil {
		t.Fatalf("open replica: %v", err)
	}
	recs, err := f2.RecordRange(0, 2)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	for _, r := range recs {
		if _, err := replica.Ingest(ctx, r); err != nil {
			t.Fatalf("ingest %d: %v", r.Offset, err)
		}
	}
}

func TestIngestVerifies(t *testing.T) {
	ctx := context.Background()
	src, _ := newWritable(t, newTestDB(t))
	for _, p := range []string{"a", "b", "c"} {
		if _, err := src.Append(ctx, []byte(p)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	recs, err := src.RecordRange(0, 10)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("want 3 records, got %d", len(recs))
	}

	dst, err := Open(newTestDB(t), src.Key(), nil)
	if err != nil {
		t.Fatalf("open replica: %v", err)
	}

	// gap
	if _, err := dst.Ingest(ctx, recs[1]); !errors.Is(err, kverr.ErrIntegrity) {
		t.Fatalf("expected gap to fail, got %v", err)
	}

	// tampered payload
	bad := recs[0]
	bad.Payload = []byte("z")
	if _, err := dst.Ingest(ctx, bad); !errors.Is(err, kverr.ErrIntegrity) {
		t.Fatalf("expected tampered payload to fail, got %v", err)
	}

	for _, r := range recs {
		added, err := dst.Ingest(ctx, r)
		if err != nil || !added {
			t.Fatalf("ingest %d: added=%v err=%v", r.Offset, added, err)
		}
	}

	// duplicate is a no-op
	added, err := dst.Ingest(ctx, recs[0])
	if err != nil || added {
		t.Fatalf("duplicate: added=%v err=%v", added, err)
	}

	// same offset, different content
	fork := recs[2]
	fork.Payload = []byte("fork")
	if _, err := dst.Ingest(ctx, fork); !errors.Is(err, kverr.ErrIntegrity) {
		t.Fatalf("expected fork to fail, got %v", err)
	}

	got, err := dst.GetRange(0, 3)
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if string(got[2]) != "c" {
		t.Fatalf("want c, got %q", got[2])
	}
}

func TestReady(t *testing.T) {
	f, _ := newWritable(t, newTestDB(t))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := f.Ready(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = f.Append(context.Background(), []byte("h"))
	}()
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := f.Ready(ctx2); err != nil {
		t.Fatalf("ready: %v", err)
	}
}
