package replicate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/rzbill/hyperkv/internal/feed"
	"github.com/rzbill/hyperkv/internal/kverr"
	"github.com/rzbill/hyperkv/internal/metrics"
	"github.com/rzbill/hyperkv/pkg/log"
)

// State of a Half.
type State int

const (
	Idle State = iota
	Exchanging
	Converged
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Exchanging:
		return "exchanging"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// FeedLength is one advertised feed.
type FeedLength struct {
	Key    feed.Key
	Length uint64
}

// Local is the store side of a session.
type Local interface {
	SourceKey() feed.Key
	// Lengths lists every known feed, authorized or not.
	Lengths() []FeedLength
	Length(key feed.Key) uint64
	Records(key feed.Key, start, end uint64) ([]feed.Record, error)
	// Ingest verifies and appends records of key, registering the feed if
	// needed. It returns how many records were new.
	Ingest(ctx context.Context, key feed.Key, recs []feed.Record) (int, error)
}

// Options tunes a session.
type Options struct {
	// BatchSize caps records per data frame.
	BatchSize int
	// MaxFrameBytes rejects larger inbound frames. It is advertised in the
	// handshake and outbound frames respect the smaller of both limits.
	MaxFrameBytes int
	Logger        log.Logger
	// Metrics is optional.
	Metrics *metrics.Metrics
}

func (o *Options) defaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if o.Logger == nil {
		o.Logger = log.NewNopLogger()
	}
}

// Half is one side of a replication session. It is single use: once it has
// converged or failed a new one must be opened.
type Half struct {
	local  Local
	opts   Options
	logger log.Logger
	id     string

	outR *io.PipeReader
	outW *io.PipeWriter
	inR  *io.PipeReader
	inW  *io.PipeWriter

	control *queue

	mu         sync.Mutex
	state      State
	err        error
	done       chan struct{}
	peerHave   map[feed.Key]uint64
	requested  map[feed.Key]bool
	peerEnded  bool
	// wantSynced is set once Synced is queued; sentSynced once written.
	wantSynced bool
	sentSynced bool
	sentEnd    bool
	peerSynced bool
	// peerMaxFrame is the peer's advertised frame limit, 0 until known.
	peerMaxFrame int
}

// New starts a session half for local. It stops when it converges, fails, or
// ctx is done.
func New(ctx context.Context, local Local, opts Options) *Half {
	opts.defaults()
	h := &Half{
		local:     local,
		opts:      opts,
		id:        uuid.NewString(),
		control:   newQueue(),
		done:      make(chan struct{}),
		peerHave:  map[feed.Key]uint64{},
		requested: map[feed.Key]bool{},
	}
	h.logger = opts.Logger.With(log.Component("replicate"), log.Str(log.SessionIDKey, h.id))
	h.outR, h.outW = io.Pipe()
	h.inR, h.inW = io.Pipe()

	go h.writeLoop(ctx)
	go h.readLoop(ctx)
	go func() {
		select {
		case <-ctx.Done():
			h.fail(fmt.Errorf("%w: %w", kverr.ErrChannel, ctx.Err()))
		case <-h.done:
		}
	}()
	return h
}

// ID identifies the session in logs and in the peer's handshake.
func (h *Half) ID() string { return h.id }

// Outbound is the stream of bytes this side sends to the peer.
func (h *Half) Outbound() io.Reader { return h.outR }

// Inbound is where the peer's outbound bytes must be written. Closing it
// signals end of stream.
func (h *Half) Inbound() io.WriteCloser { return h.inW }

// State returns the current state.
func (h *Half) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the failure cause, if any.
func (h *Half) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the half converges or fails, or ctx is done. It returns
// the state reached and the session error, or ctx's error.
func (h *Half) Wait(ctx context.Context) (State, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.state, h.err
	case <-ctx.Done():
		return h.State(), ctx.Err()
	}
}

func (h *Half) setExchanging() {
	h.mu.Lock()
	if h.state == Idle {
		h.state = Exchanging
	}
	h.mu.Unlock()
}

func (h *Half) fail(err error) {
	h.mu.Lock()
	if h.state == Converged || h.state == Failed {
		h.mu.Unlock()
		return
	}
	h.state = Failed
	h.err = err
	close(h.done)
	h.mu.Unlock()

	h.outW.CloseWithError(err)
	h.inR.CloseWithError(err)
	h.logger.Warn("replication failed", log.Err(err))
	if h.opts.Metrics != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeCanceled
		}
		h.opts.Metrics.SessionDone(outcome)
	}
}

// maybeConverge finishes the half once both sides have everything. The
// flags it checks are only set after the corresponding frame was written, so
// closing the outbound stream here never cuts a frame short.
func (h *Half) maybeConverge() {
	h.mu.Lock()
	if h.state != Exchanging || !h.sentEnd || !h.sentSynced || !h.peerSynced {
		h.mu.Unlock()
		return
	}
	h.state = Converged
	close(h.done)
	h.mu.Unlock()

	h.outW.Close()
	h.logger.Info("replication converged")
	if h.opts.Metrics != nil {
		h.opts.Metrics.SessionDone(metrics.OutcomeConverged)
	}
}

func (h *Half) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Half) send(m *message) error {
	if err := writeFrame(h.outW, m); err != nil {
		if h.finished() {
			return err
		}
		return fmt.Errorf("%w: write %s: %v", kverr.ErrChannel, m.Kind, err)
	}
	return nil
}

// writeLoop produces the outbound stream: handshake, advertisements, the
// pushed feed data, End, then answers to control messages until done.
func (h *Half) writeLoop(ctx context.Context) {
	err := h.push(ctx)
	for err == nil && !h.finished() {
		if err = h.flushControl(ctx); err != nil {
			break
		}
		h.maybeConverge()
		select {
		case <-h.control.notify:
		case <-h.done:
		}
	}
	if err != nil {
		h.fail(err)
	}
}

func (h *Half) push(ctx context.Context) error {
	hs := &message{
		Kind:     kindHandshake,
		Version:  ProtocolVersion,
		Source:   h.local.SourceKey(),
		PeerID:   h.id,
		MaxFrame: uint64(h.opts.MaxFrameBytes),
	}
	if err := h.send(hs); err != nil {
		return err
	}
	h.setExchanging()

	haves := h.local.Lengths()
	for _, fl := range haves {
		if err := h.send(&message{Kind: kindHave, Feed: fl.Key, Length: fl.Length}); err != nil {
			return err
		}
	}
	for _, fl := range haves {
		h.mu.Lock()
		start := h.peerHave[fl.Key]
		h.mu.Unlock()
		if err := h.sendRange(ctx, fl.Key, start, fl.Length); err != nil {
			return err
		}
		if err := h.flushControl(ctx); err != nil {
			return err
		}
	}
	if err := h.send(&message{Kind: kindEnd}); err != nil {
		return err
	}
	h.mu.Lock()
	h.sentEnd = true
	h.mu.Unlock()
	return nil
}

// frameLimit is the largest frame this side may send.
func (h *Half) frameLimit() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.peerMaxFrame > 0 && h.peerMaxFrame < h.opts.MaxFrameBytes {
		return h.peerMaxFrame
	}
	return h.opts.MaxFrameBytes
}

// sendRange pushes records [start, end) of key, splitting data frames by
// record count and by encoded size.
func (h *Half) sendRange(ctx context.Context, key feed.Key, start, end uint64) error {
	for start < end {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", kverr.ErrChannel, err)
		}
		stop := start + uint64(h.opts.BatchSize)
		if stop > end {
			stop = end
		}
		recs, err := h.local.Records(key, start, stop)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		limit := h.frameLimit()
		for len(recs) > 0 {
			n, size := 0, 0
			for n < len(recs) {
				rs := recordSize(recs[n])
				if n > 0 && dataFrameSize(size+rs) > limit {
					break
				}
				size += rs
				n++
			}
			if dataFrameSize(size) > limit {
				return fmt.Errorf("%w: record %d of feed %s needs a %d byte frame, limit %d",
					kverr.ErrChannel, recs[0].Offset, key.Short(), dataFrameSize(size), limit)
			}
			if err := h.send(&message{Kind: kindData, Feed: key, Records: recs[:n]}); err != nil {
				return err
			}
			if h.opts.Metrics != nil {
				h.opts.Metrics.Sent(n)
			}
			start += uint64(n)
			recs = recs[n:]
		}
	}
	return nil
}

func (h *Half) flushControl(ctx context.Context) error {
	for _, m := range h.control.drain() {
		switch m.Kind {
		case kindRequest:
			h.logger.Debug("serving request", log.Str("feed", m.Feed.Short()), log.Uint64("start", m.Start), log.Uint64("end", m.End))
			if err := h.sendRange(ctx, m.Feed, m.Start, m.End); err != nil {
				return err
			}
		default:
			if err := h.send(m); err != nil {
				return err
			}
			if m.Kind == kindSynced {
				h.mu.Lock()
				h.sentSynced = true
				h.mu.Unlock()
			}
		}
	}
	return nil
}

// readLoop consumes the peer's stream.
func (h *Half) readLoop(ctx context.Context) {
	r := bufio.NewReader(h.inR)
	first := true
	for {
		m, err := readFrame(r, h.opts.MaxFrameBytes)
		if err != nil {
			if h.finished() {
				return
			}
			h.mu.Lock()
			peerSynced := h.peerSynced
			h.mu.Unlock()
			if err == io.EOF && peerSynced {
				// The peer is done; our writer converges once its own
				// frames are out.
				return
			}
			if !errors.Is(err, kverr.ErrChannel) {
				err = fmt.Errorf("%w: read: %v", kverr.ErrChannel, err)
			}
			h.fail(err)
			return
		}
		if first {
			if err := h.checkHandshake(m); err != nil {
				h.fail(err)
				return
			}
			first = false
			h.setExchanging()
			continue
		}
		if err := h.handle(ctx, m); err != nil {
			h.fail(err)
			return
		}
	}
}

func (h *Half) checkHandshake(m *message) error {
	if m.Kind != kindHandshake {
		return fmt.Errorf("%w: expected handshake, got %s", kverr.ErrChannel, m.Kind)
	}
	if m.Version != ProtocolVersion {
		return fmt.Errorf("%w: protocol version %d, want %d", kverr.ErrChannel, m.Version, ProtocolVersion)
	}
	if src := h.local.SourceKey(); m.Source != src {
		return fmt.Errorf("%w: peer replicates source %s, this store %s", kverr.ErrChannel, m.Source.Short(), src.Short())
	}
	if m.MaxFrame > 0 && m.MaxFrame < uint64(h.opts.MaxFrameBytes) {
		h.mu.Lock()
		h.peerMaxFrame = int(m.MaxFrame)
		h.mu.Unlock()
	}
	h.logger.Debug("handshake", log.Str("peer", m.PeerID), log.Uint64("max_frame", m.MaxFrame))
	return nil
}

func (h *Half) handle(ctx context.Context, m *message) error {
	switch m.Kind {
	case kindHave:
		h.mu.Lock()
		h.peerHave[m.Feed] = m.Length
		h.mu.Unlock()
	case kindRequest:
		h.control.push(m)
	case kindData:
		n, err := h.local.Ingest(ctx, m.Feed, m.Records)
		if err != nil {
			return err
		}
		if h.opts.Metrics != nil && n > 0 {
			h.opts.Metrics.Received(n)
		}
		h.checkSynced()
	case kindEnd:
		h.mu.Lock()
		h.peerEnded = true
		h.mu.Unlock()
		h.checkSynced()
	case kindSynced:
		h.mu.Lock()
		h.peerSynced = true
		h.mu.Unlock()
		h.maybeConverge()
	default:
		return fmt.Errorf("%w: unexpected %s", kverr.ErrChannel, m.Kind)
	}
	return nil
}

// checkSynced requests whatever the peer advertised but did not push, and
// queues Synced once nothing is missing.
func (h *Half) checkSynced() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.peerEnded || h.wantSynced {
		return
	}
	missing := false
	for key, want := range h.peerHave {
		have := h.local.Length(key)
		if have >= want {
			continue
		}
		missing = true
		if !h.requested[key] {
			h.requested[key] = true
			h.control.push(&message{Kind: kindRequest, Feed: key, Start: have, End: want})
		}
	}
	if !missing {
		h.wantSynced = true
		h.control.push(&message{Kind: kindSynced})
	}
}
