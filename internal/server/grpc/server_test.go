package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	pebblestore "github.com/rzbill/hyperkv/internal/storage/pebble"
	"github.com/rzbill/hyperkv/pkg/hyperkv"
)

const bufSize = 1 << 20

func opts() hyperkv.Options {
	return hyperkv.Options{Fsync: pebblestore.FsyncModeNever}
}

func serve(t *testing.T, ctx context.Context, store *hyperkv.Store) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	srv := New(store, nil)
	go func() { _ = srv.Serve(ctx, lis) }()
	t.Cleanup(srv.Close)

	conn, err := Dial(ctx, "bufnet", grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
		return lis.Dial()
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHealthOverGRPC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a, err := hyperkv.Create(ctx, t.TempDir(), opts())
	require.NoError(t, err)
	defer a.Close()

	conn := serve(t, ctx, a)
	res, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, res.GetStatus())
}

func TestSyncOverGRPC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a, err := hyperkv.Create(ctx, t.TempDir(), opts())
	require.NoError(t, err)
	defer a.Close()
	b, err := hyperkv.OpenRemote(ctx, t.TempDir(), a.SourceKey(), opts())
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Put(ctx, "from/a", []byte("1"))
	require.NoError(t, err)
	_, err = b.Put(ctx, "from/b", []byte("2"))
	require.NoError(t, err)
	require.NoError(t, a.Authorize(ctx, b.LocalKey()))

	conn := serve(t, ctx, a)
	require.NoError(t, Sync(ctx, conn, b))

	for _, s := range []*hyperkv.Store{a, b} {
		for key, want := range map[string]string{"from/a": "1", "from/b": "2"} {
			res, err := s.Get(ctx, key)
			require.NoError(t, err)
			v, ok := res.Value()
			require.True(t, ok, "key %s", key)
			require.Equal(t, want, string(v))
		}
	}

	// A second session with nothing new still converges.
	require.NoError(t, Sync(ctx, conn, b))
}

func TestSyncRejectsOtherDataset(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a, err := hyperkv.Create(ctx, t.TempDir(), opts())
	require.NoError(t, err)
	defer a.Close()
	other, err := hyperkv.Create(ctx, t.TempDir(), opts())
	require.NoError(t, err)
	defer other.Close()

	conn := serve(t, ctx, a)
	err = Sync(ctx, conn, other)
	require.ErrorIs(t, err, hyperkv.ErrChannel)
}
