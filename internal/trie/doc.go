// Package trie implements the per-entry hash trie that indexes a multi-writer
// store.
//
// Every entry carries a Trie describing, for each position of its own Path,
// the latest entries (one per feed) that share the path up to that position
// and then take a different value. A reader starting at any set of head
// entries reaches every live entry for a key by following pointers at the
// first position where the current entry's path diverges from the target.
//
// Pointers address entries by (feed index, offset). In memory the feed index
// is store-global; on the wire it is local to the writing entry and resolved
// through that entry's decode map.
package trie
