package hyperkv

import (
	"context"
	"fmt"

	"github.com/rzbill/hyperkv/internal/auth"
	"github.com/rzbill/hyperkv/internal/messages"
	"github.com/rzbill/hyperkv/internal/replicate"
	"github.com/rzbill/hyperkv/internal/trie"
	"github.com/rzbill/hyperkv/pkg/log"
)

// Put writes value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) (*Node, error) {
	if value == nil {
		value = []byte{}
	}
	return s.writeKey(ctx, "put", key, value, false)
}

// Delete writes a tombstone for key.
func (s *Store) Delete(ctx context.Context, key string) (*Node, error) {
	return s.writeKey(ctx, "delete", key, nil, true)
}

func (s *Store) writeKey(ctx context.Context, kind, key string, value []byte, deleted bool) (*Node, error) {
	key = trie.NormalizeKey(key)
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	done, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	v, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.appendLocked(ctx, v, kind, &messages.Entry{Key: key, Value: value, Deleted: deleted}, nil)
}

// Authorize admits the feed with the given key into the dataset by
// appending a structural entry that lists it. Pass the grantee's LocalKey:
// its SourceKey names the dataset, not the feed it writes to.
//
// The local feed must itself be authorized. Authorizing a feed already
// listed is a no-op. A key whose feed has not been replicated yet is
// recorded and takes effect once the feed arrives.
func (s *Store) Authorize(ctx context.Context, key FeedKey) error {
	if key == s.source {
		s.logger.Warn("authorizing the source key has no effect; authorize the writer's local key",
			log.Str("feed", key.String()))
	}
	done, err := s.enter()
	if err != nil {
		return err
	}
	defer done()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	v, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	if !v.auth.Has(s.local) {
		return fmt.Errorf("%w: local feed %s cannot authorize others", ErrAuthorization, s.local.Short())
	}
	list, err := s.localFeeds(ctx, v)
	if err != nil {
		return err
	}
	if _, changed := auth.Grant(list, key); !changed {
		s.logger.Debug("feed already authorized", log.Str("feed", key.String()))
		return nil
	}
	if _, err := s.register([]FeedKey{key}); err != nil {
		return err
	}
	_, err = s.appendLocked(ctx, v, "authorize", &messages.Entry{}, []FeedKey{key})
	if err == nil {
		s.logger.Info("feed authorized", log.Str("feed", key.String()))
	}
	return err
}

// localFeeds returns the local feed's current list, or the initial one when
// nothing has been written yet.
func (s *Store) localFeeds(ctx context.Context, v *view) ([]FeedKey, error) {
	last, err := v.latest(ctx, s.localIdx)
	if err != nil {
		return nil, err
	}
	if last != nil {
		return last.Feeds, nil
	}
	if s.source == s.local {
		return []FeedKey{s.source}, nil
	}
	return []FeedKey{s.source, s.local}, nil
}

// appendLocked builds the trie and clock for e against v, appends it to the
// local feed and returns the decoded node. The caller holds writeMu and took
// v inside that lock.
func (s *Store) appendLocked(ctx context.Context, v *view, kind string, e *messages.Entry, grant []FeedKey) (*Node, error) {
	tr, err := trie.Build(ctx, v, e.Key, v.heads(true))
	if err != nil {
		return nil, err
	}

	last, err := v.latest(ctx, s.localIdx)
	if err != nil {
		return nil, err
	}
	list, err := s.localFeeds(ctx, v)
	if err != nil {
		return nil, err
	}
	changed := last == nil
	add := func(k FeedKey) {
		var c bool
		if list, c = auth.Grant(list, k); c {
			changed = true
		}
	}
	add(s.local)
	// Every head the entry was built against belongs in its clock, even when
	// the trie superseded it without keeping a pointer.
	for _, h := range v.heads(true) {
		add(s.keyAt(h.Feed))
	}
	for _, g := range tr.Feeds() {
		add(s.keyAt(g))
	}
	for _, k := range grant {
		add(k)
	}

	if changed {
		e.Feeds = list
	} else {
		at := last.feedsAt()
		e.Inflate = &at
	}

	global, err := s.register(list)
	if err != nil {
		return nil, err
	}
	local := make(map[int]int, len(global))
	for i, g := range global {
		local[g] = i
	}
	if e.Trie, err = tr.Encode(func(g int) (int, bool) { i, ok := local[g]; return i, ok }); err != nil {
		return nil, err
	}
	e.Clock = make([]uint64, len(global))
	for i, g := range global {
		e.Clock[i] = v.length(g)
	}

	payload := e.Marshal()
	if limit := replicate.MaxPayload(s.opts.MaxFrameBytes); len(payload) > limit {
		return nil, fmt.Errorf("%w: entry for %q is %d bytes, at most %d fit a replication frame", ErrTooLarge, e.Key, len(payload), limit)
	}
	lf := s.feedAt(s.localIdx)
	off, err := lf.Append(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.metrics.Wrote(kind)
	s.logger.Debug("entry appended",
		log.Str(log.OperationKey, kind),
		log.Str("key", e.Key),
		log.Uint64("offset", off),
		log.Bool("feeds", e.Feeds != nil))
	return s.node(ctx, s.localIdx, off)
}
