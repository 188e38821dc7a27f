package grpcserver

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/hyperkv/pkg/hyperkv"
	"github.com/rzbill/hyperkv/pkg/log"
)

// Server owns the gRPC server and the store it replicates.
type Server struct {
	store  *hyperkv.Store
	logger log.Logger
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
}

// New constructs a gRPC server and registers the replication and health
// services.
func New(store *hyperkv.Store, logger log.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{
		store:  store,
		logger: logger.With(log.Component("grpc")),
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
	}
	s.grpc.RegisterService(&replicationDesc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.refreshHealth()
	return s
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.lis = l
	s.logger.Info("grpc listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func (s *Server) refreshHealth() {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.store.CheckHealth(); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(serviceName, status)
}

// replicate runs one session per stream. The handler returns once the
// session has converged or failed and everything it produced was sent.
func (s *Server) replicate(stream grpc.ServerStream) error {
	ctx := stream.Context()
	h := s.store.Replicate(ctx)
	logger := s.logger.With(log.Str(log.SessionIDKey, h.ID()))
	logger.Debug("replication stream opened")

	sent := make(chan error, 1)
	go func() { sent <- sendAll(stream, h.Outbound()) }()
	go func() { _ = hyperkv.Connect(h, &chunkReader{s: stream}) }()

	state, err := h.Wait(ctx)
	serr := <-sent
	s.refreshHealth()
	if err != nil {
		logger.Warn("replication stream failed", log.Str("state", state.String()), log.Err(err))
		return err
	}
	if serr != nil {
		return serr
	}
	logger.Debug("replication stream done")
	return nil
}
