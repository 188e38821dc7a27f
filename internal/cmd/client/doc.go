// Package client contains the Cobra commands of the `hyperkv` CLI that work
// on a local store directory.
//
// The store directory comes from --data-dir, then $HYPERKV_DATA_DIR, then the
// OS-specific application data directory. Tunables come from --config (JSON or YAML) with
// HYPERKV_* environment overrides.
//
// Usage
//
//	hyperkv init                         # new dataset; prints source and local keys
//	hyperkv init --source <hex>          # join a dataset as a new writer
//	hyperkv put example/first "hello"
//	hyperkv get example/first
//	hyperkv del example/first
//	hyperkv authorize <writer local key>  # not the writer's source key
//	hyperkv sync 10.0.0.2:7464            # replicate with a `hyperkv serve` peer
//	hyperkv feeds --filter 'key.startsWith("example/")'
//	hyperkv example                      # two stores, authorize, replicate, print
//
// Notes
//
//   - get prints every concurrent value when writers conflict and exits
//     non-zero when the key is missing.
//   - feeds prints each feed with its (source) and (local) tags and every
//     entry after the header: key, value, deleted, trie, clock, inflate and
//     feeds.
package client
