package replicate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rzbill/hyperkv/internal/kverr"
)

// Connect copies src (a peer's outbound stream) into h's inbound stream
// until src ends. A copy failure fails h.
func Connect(h *Half, src io.Reader) error {
	if _, err := io.Copy(h.inW, src); err != nil {
		err = channelError(err)
		h.inW.CloseWithError(err)
		return err
	}
	return h.inW.Close()
}

// Pipe wires a and b to each other in both directions and waits for both to
// finish. It returns the first session error.
func Pipe(ctx context.Context, a, b *Half) error {
	go pump(a, b)
	go pump(b, a)

	_, errA := a.Wait(ctx)
	_, errB := b.Wait(ctx)
	return errors.Join(errA, errB)
}

// pump copies from's outbound into to's inbound. If to stops accepting
// bytes, from is failed too so its writer does not block forever.
func pump(from, to *Half) {
	if err := Connect(to, from.Outbound()); err != nil {
		from.fail(fmt.Errorf("peer stopped reading: %w", err))
	}
}

// channelError marks err as a channel failure unless it already is one.
func channelError(err error) error {
	if errors.Is(err, kverr.ErrChannel) {
		return err
	}
	return fmt.Errorf("%w: %v", kverr.ErrChannel, err)
}
