package serverrun

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	grpcserver "github.com/rzbill/hyperkv/internal/server/grpc"
	pebblestore "github.com/rzbill/hyperkv/internal/storage/pebble"
	"github.com/rzbill/hyperkv/pkg/hyperkv"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return l
}

func TestRunRequiresStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := Run(ctx, Options{Dir: t.TempDir(), Listen: "127.0.0.1:0", Store: hyperkv.Options{Fsync: pebblestore.FsyncModeNever}})
	if err == nil {
		t.Fatal("expected error for a directory without a store")
	}
}

func TestRunServesReplicationAndMetrics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	storeOpts := hyperkv.Options{Fsync: pebblestore.FsyncModeNever}

	dir := t.TempDir()
	a, err := hyperkv.Create(ctx, dir, storeOpts)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := a.Put(ctx, "served", []byte("yes")); err != nil {
		t.Fatalf("put: %v", err)
	}
	source := a.SourceKey()
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lis, mlis := listen(t), listen(t)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- Run(runCtx, Options{Dir: dir, Listener: lis, MetricsListener: mlis, Store: storeOpts})
	}()

	b, err := hyperkv.OpenRemote(ctx, t.TempDir(), source, storeOpts)
	if err != nil {
		t.Fatalf("open remote: %v", err)
	}
	defer b.Close()
	conn, err := grpcserver.Dial(ctx, lis.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := grpcserver.Sync(ctx, conn, b); err != nil {
		t.Fatalf("sync: %v", err)
	}
	res, err := b.Get(ctx, "served")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v, ok := res.Value(); !ok || string(v) != "yes" {
		t.Fatalf("unexpected result %v %q", res.Status(), v)
	}

	resp, err := http.Get("http://" + mlis.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "hyperkv_replication_records_sent_total") {
		t.Fatalf("missing replication metrics:\n%s", body)
	}

	stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("run did not stop")
	}
}
