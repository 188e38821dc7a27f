// Package hyperkv is a multi-writer, append-only key-value store.
//
// Every store instance writes to its own signed feed (its local key) and
// reads the merged view of every feed authorized from the dataset's source
// feed (its source key). The creator of a dataset has source == local;
// stores opened against a remote source get a fresh local key, and that
// local key is what the source must Authorize before their writes merge.
//
//	a, _ := hyperkv.Create(ctx, dirA, hyperkv.Options{})
//	b, _ := hyperkv.OpenRemote(ctx, dirB, a.SourceKey(), hyperkv.Options{})
//	_ = a.Authorize(ctx, b.LocalKey()) // not b.SourceKey()
//	_ = hyperkv.Pipe(ctx, a.Replicate(ctx), b.Replicate(ctx))
//
// Concurrent writes to the same key are not collapsed: Get returns every
// causally concurrent latest value and reports a conflict.
package hyperkv
