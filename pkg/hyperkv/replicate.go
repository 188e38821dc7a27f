package hyperkv

import (
	"context"
	"io"

	"github.com/rzbill/hyperkv/internal/feed"
	"github.com/rzbill/hyperkv/internal/replicate"
)

// Session is one half of a replication session.
type Session = replicate.Half

// Session states.
const (
	SessionIdle       = replicate.Idle
	SessionExchanging = replicate.Exchanging
	SessionConverged  = replicate.Converged
	SessionFailed     = replicate.Failed
)

// Pipe connects two in-process sessions and waits for both to finish.
func Pipe(ctx context.Context, a, b *Session) error { return replicate.Pipe(ctx, a, b) }

// Connect feeds a peer's outbound stream into s until src ends.
func Connect(s *Session, src io.Reader) error { return replicate.Connect(s, src) }

// Replicate opens one half of a replication session. Its Outbound stream
// must reach the peer's Inbound and the peer's Outbound must reach this
// half's Inbound; Pipe wires two in-process halves. The session
// ends when ctx is done, or on its own once both sides converge or either
// fails.
func (s *Store) Replicate(ctx context.Context) *Session {
	return replicate.New(ctx, replicaSide{s}, replicate.Options{
		BatchSize:     s.opts.BatchSize,
		MaxFrameBytes: s.opts.MaxFrameBytes,
		Logger:        s.opts.Logger,
		Metrics:       s.metrics,
	})
}

// replicaSide adapts a Store to replicate.Local.
type replicaSide struct{ s *Store }

func (r replicaSide) SourceKey() feed.Key { return r.s.source }

func (r replicaSide) Lengths() []replicate.FeedLength {
	done, err := r.s.enter()
	if err != nil {
		return nil
	}
	defer done()
	r.s.regMu.RLock()
	defer r.s.regMu.RUnlock()
	out := make([]replicate.FeedLength, len(r.s.feeds))
	for i, f := range r.s.feeds {
		out[i] = replicate.FeedLength{Key: f.Key(), Length: f.Len()}
	}
	return out
}

func (r replicaSide) Length(key feed.Key) uint64 {
	done, err := r.s.enter()
	if err != nil {
		return 0
	}
	defer done()
	_, f, ok := r.s.lookupFeed(key)
	if !ok {
		return 0
	}
	return f.Len()
}

func (r replicaSide) Records(key feed.Key, start, end uint64) ([]feed.Record, error) {
	done, err := r.s.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	_, f, ok := r.s.lookupFeed(key)
	if !ok {
		return nil, nil
	}
	return f.RecordRange(start, end)
}

func (r replicaSide) Ingest(ctx context.Context, key feed.Key, recs []feed.Record) (int, error) {
	done, err := r.s.enter()
	if err != nil {
		return 0, err
	}
	defer done()
	if _, err := r.s.register([]feed.Key{key}); err != nil {
		return 0, err
	}
	_, f, _ := r.s.lookupFeed(key)
	n := 0
	for _, rec := range recs {
		added, err := f.Ingest(ctx, rec)
		if err != nil {
			return n, err
		}
		if added {
			n++
		}
	}
	return n, nil
}
