package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rzbill/hyperkv/pkg/hyperkv"
)

// Dial connects to a replication server.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	return grpc.DialContext(ctx, addr, opts...)
}

// Sync runs one replication session between store and the server behind
// conn and returns once it converged or failed.
func Sync(ctx context.Context, conn grpc.ClientConnInterface, store *hyperkv.Store) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := conn.NewStream(ctx, &replicationDesc.Streams[0], replicateMethod)
	if err != nil {
		return err
	}
	h := store.Replicate(ctx)

	go func() {
		_ = sendAll(stream, h.Outbound())
		_ = stream.CloseSend()
	}()
	received := make(chan struct{})
	go func() {
		defer close(received)
		_ = hyperkv.Connect(h, &chunkReader{s: stream})
	}()

	if _, err := h.Wait(ctx); err != nil {
		return err
	}
	// The server ends the stream once its half is done too.
	select {
	case <-received:
	case <-ctx.Done():
	}
	return nil
}
