package hyperkv

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/rzbill/hyperkv/internal/feed"
	"github.com/rzbill/hyperkv/internal/manifest"
	"github.com/rzbill/hyperkv/internal/messages"
	"github.com/rzbill/hyperkv/internal/metrics"
	pebblestore "github.com/rzbill/hyperkv/internal/storage/pebble"
	"github.com/rzbill/hyperkv/pkg/log"
)

// FeedKey identifies a feed: an ed25519 public key.
type FeedKey = feed.Key

// ParseFeedKey decodes a hex feed key.
func ParseFeedKey(s string) (FeedKey, error) { return feed.ParseKey(s) }

// Store is one instance of a multi-writer dataset.
type Store struct {
	dir     string
	db      *pebblestore.DB
	opts    Options
	logger  log.Logger
	metrics *metrics.Metrics

	source FeedKey
	local  FeedKey

	regMu    sync.RWMutex
	man      manifest.Manifest
	feeds    []*feed.Feed
	index    map[FeedKey]int
	localIdx int

	cache *nodeCache

	// writeMu serializes appends to the local feed.
	writeMu sync.Mutex

	// lifeMu is held shared by every operation and exclusively by Close.
	lifeMu sync.RWMutex
	closed bool
}

// Create initializes a new dataset in dir. The store's source and local keys
// are the same fresh key.
func Create(ctx context.Context, dir string, opts Options) (*Store, error) {
	key, secret, err := feed.Generate()
	if err != nil {
		return nil, err
	}
	return create(ctx, dir, key, key, secret, opts)
}

// OpenRemote initializes dir as a new writer of the dataset identified by
// source. The store gets a fresh local key; its writes merge only after a
// feed that is already authorized authorizes LocalKey().
func OpenRemote(ctx context.Context, dir string, source FeedKey, opts Options) (*Store, error) {
	local, secret, err := feed.Generate()
	if err != nil {
		return nil, err
	}
	return create(ctx, dir, source, local, secret, opts)
}

// Open reopens a store previously initialized with Create or OpenRemote.
func Open(ctx context.Context, dir string, opts Options) (*Store, error) {
	s, err := openDB(dir, opts)
	if err != nil {
		return nil, err
	}
	m, ok, err := manifest.Load(s.db)
	if err == nil && !ok {
		err = fmt.Errorf("%w: no store in %s", ErrNotFound, dir)
	}
	if err == nil {
		err = s.load(ctx, m)
	}
	if err != nil {
		_ = s.db.Close()
		return nil, err
	}
	return s, nil
}

func create(ctx context.Context, dir string, source, local FeedKey, secret ed25519.PrivateKey, opts Options) (*Store, error) {
	s, err := openDB(dir, opts)
	if err != nil {
		return nil, err
	}
	_, exists, err := manifest.Load(s.db)
	if err == nil && exists {
		err = fmt.Errorf("hyperkv: %s already holds a store; use Open", dir)
	}
	if err == nil {
		m := manifest.New(source, local, secret)
		if err = manifest.Save(s.db, m); err == nil {
			err = s.load(ctx, m)
		}
	}
	if err != nil {
		_ = s.db.Close()
		return nil, err
	}
	s.logger.Info("store created", log.Str("source", source.String()), log.Str("local", local.String()))
	return s, nil
}

func openDB(dir string, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	m, err := metrics.New(opts.Registerer)
	if err != nil {
		return nil, err
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       dir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       m,
	})
	if err != nil {
		return nil, err
	}
	return &Store{
		dir:     dir,
		db:      db,
		opts:    opts,
		logger:  opts.Logger.With(log.Component("store")),
		metrics: m,
		index:   map[FeedKey]int{},
		cache:   newNodeCache(opts.NodeCacheSize),
	}, nil
}

// load opens every registered feed and makes sure the local feed has its
// header.
func (s *Store) load(ctx context.Context, m manifest.Manifest) error {
	keys, err := m.Keys()
	if err != nil {
		return err
	}
	if s.source, err = m.SourceKey(); err != nil {
		return err
	}
	if s.local, err = m.LocalKey(); err != nil {
		return err
	}
	s.man = m
	for _, k := range keys {
		var secret ed25519.PrivateKey
		if k == s.local {
			secret = ed25519.PrivateKey(m.LocalSecret)
		}
		f, err := feed.Open(s.db, k, secret)
		if err != nil {
			return err
		}
		s.index[k] = len(s.feeds)
		s.feeds = append(s.feeds, f)
	}
	idx, ok := s.index[s.local]
	if !ok {
		return fmt.Errorf("%w: manifest does not register the local feed", ErrIntegrity)
	}
	s.localIdx = idx
	s.metrics.SetFeeds(len(s.feeds))

	lf := s.feeds[idx]
	if lf.Len() == 0 {
		h := &messages.Header{Type: messages.HeaderType, Metadata: s.opts.Metadata}
		if _, err := lf.Append(ctx, h.Marshal()); err != nil {
			return err
		}
	}
	return lf.Ready(ctx)
}

// Close waits for in-flight operations and releases the database. Running
// replication sessions fail with ErrClosed on their next storage access.
func (s *Store) Close() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("store closed")
	return s.db.Close()
}

// enter marks an operation in flight. The returned func ends it.
func (s *Store) enter() (func(), error) {
	s.lifeMu.RLock()
	if s.closed {
		s.lifeMu.RUnlock()
		return nil, ErrClosed
	}
	return s.lifeMu.RUnlock, nil
}

// SourceKey identifies the dataset: the feed every authorization chain
// starts from.
func (s *Store) SourceKey() FeedKey { return s.source }

// LocalKey is the feed this instance writes to. This is the key to pass to
// another store's Authorize.
func (s *Store) LocalKey() FeedKey { return s.local }

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// CheckHealth verifies the database is usable.
func (s *Store) CheckHealth() error {
	done, err := s.enter()
	if err != nil {
		return err
	}
	defer done()
	return s.db.CheckHealth()
}

// feedAt returns the feed with registry index idx.
func (s *Store) feedAt(idx int) *feed.Feed {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	if idx < 0 || idx >= len(s.feeds) {
		return nil
	}
	return s.feeds[idx]
}

func (s *Store) keyAt(idx int) FeedKey {
	if f := s.feedAt(idx); f != nil {
		return f.Key()
	}
	return FeedKey{}
}

func (s *Store) lookupFeed(key FeedKey) (int, *feed.Feed, bool) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	idx, ok := s.index[key]
	if !ok {
		return -1, nil, false
	}
	return idx, s.feeds[idx], true
}

// register returns registry indices for keys, adding unknown feeds (empty,
// read-only) and persisting the registry.
func (s *Store) register(keys []FeedKey) ([]int, error) {
	out := make([]int, len(keys))
	missing := false
	s.regMu.RLock()
	for i, k := range keys {
		idx, ok := s.index[k]
		if !ok {
			missing = true
			break
		}
		out[i] = idx
	}
	s.regMu.RUnlock()
	if !missing {
		return out, nil
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()
	m := s.man
	base := len(s.feeds)
	for i, k := range keys {
		if idx, ok := s.index[k]; ok {
			out[i] = idx
			continue
		}
		f, err := feed.Open(s.db, k, nil)
		if err != nil {
			s.truncateRegistryLocked(base)
			return nil, err
		}
		idx := len(s.feeds)
		s.feeds = append(s.feeds, f)
		s.index[k] = idx
		m.Feeds = append(m.Feeds, append([]byte(nil), k[:]...))
		out[i] = idx
		s.logger.Debug("feed registered", log.Str("feed", k.String()), log.Int("index", idx))
	}
	if len(s.feeds) > base {
		if err := manifest.Save(s.db, m); err != nil {
			s.truncateRegistryLocked(base)
			return nil, err
		}
		s.man = m
		s.metrics.SetFeeds(len(s.feeds))
	}
	return out, nil
}

func (s *Store) truncateRegistryLocked(n int) {
	for _, f := range s.feeds[n:] {
		delete(s.index, f.Key())
	}
	s.feeds = s.feeds[:n]
}

// lengths snapshots the length of every registered feed.
func (s *Store) lengths() []uint64 {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	out := make([]uint64, len(s.feeds))
	for i, f := range s.feeds {
		out[i] = f.Len()
	}
	return out
}
