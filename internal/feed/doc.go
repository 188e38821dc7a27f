// Package feed implements hyperkv's single-writer append-only log.
//
// # Overview
//
// A feed is identified by an ed25519 public key. Only the holder of the
// matching secret key may Append; everyone else can only Ingest records
// that were signed by the owner, typically received through replication.
// Every record extends a sha256 hash chain:
//
//	hash_n = sha256(feedKey | offset_be8 | hash_{n-1} | payload)
//	sig_n  = ed25519.Sign(secret, hash_n)
//
// so a receiver that recomputes the chain from its own copy detects wrong
// offsets, broken linkage and tampered payloads.
//
// Records live in the store's Pebble DB under lexicographically ordered keys:
//   - feed/{key32}/m              (metadata: length_be8 | head hash)
//   - feed/{key32}/e/{offset_be8} (records)
//
// Records are stored as: varint sigLen | signature | payload | crc32c(signature|payload).
//
//	f, _ := feed.Open(db, key, secret)
//	off, _ := f.Append(ctx, []byte("header"))
//	rec, _ := f.Record(off)
//	_, _ = other.Ingest(ctx, rec) // on a replica holding no secret
package feed
