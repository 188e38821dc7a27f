package feed

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - feed/{key32}/m
// - feed/{key32}/e/{offset_be8}

var (
	feedPrefix = []byte("feed/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the feed metadata key.
func KeyMeta(feed Key) []byte {
	k := make([]byte, 0, len(feedPrefix)+len(feed)+len(metaSuffix))
	k = append(k, feedPrefix...)
	k = append(k, feed[:]...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntry builds the record key with a big-endian offset for proper ordering.
func KeyEntry(feed Key, offset uint64) []byte {
	k := make([]byte, 0, len(feedPrefix)+len(feed)+len(entrySeg)+8)
	k = append(k, feedPrefix...)
	k = append(k, feed[:]...)
	k = append(k, entrySeg...)
	k = appendBE8(k, offset)
	return k
}

// offsetFromEntryKey extracts the trailing offset from a record key.
func offsetFromEntryKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-8:])
}
