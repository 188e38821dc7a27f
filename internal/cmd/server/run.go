package serverrun

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	grpcserver "github.com/rzbill/hyperkv/internal/server/grpc"
	"github.com/rzbill/hyperkv/pkg/hyperkv"
	"github.com/rzbill/hyperkv/pkg/log"
)

type Options struct {
	Dir string
	// Listen is the gRPC address. Listener, when set, is used instead.
	Listen   string
	Listener net.Listener
	// MetricsAddr enables the /metrics endpoint. MetricsListener, when set,
	// is used instead.
	MetricsAddr     string
	MetricsListener net.Listener
	// Create initializes a new dataset when Dir holds no store.
	Create bool
	Store  hyperkv.Options
}

// Run serves the store until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Store.Logger
	if logger == nil {
		logger = log.NewNopLogger()
		opts.Store.Logger = logger
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts.Store.Registerer = reg

	store, err := hyperkv.Open(ctx, opts.Dir, opts.Store)
	if errors.Is(err, hyperkv.ErrNotFound) && opts.Create {
		store, err = hyperkv.Create(ctx, opts.Dir, opts.Store)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("Starting hyperkv server",
		log.Str("dir", opts.Dir),
		log.Str("source", store.SourceKey().String()),
		log.Str("local", store.LocalKey().String()),
		log.Str("grpc", opts.Listen),
		log.Str("metrics", opts.MetricsAddr),
	)

	lis := opts.Listener
	if lis == nil {
		if lis, err = net.Listen("tcp", opts.Listen); err != nil {
			return err
		}
	}
	gsrv := grpcserver.New(store, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gsrv.Serve(ctx, lis); err != nil && ctx.Err() == nil {
			logger.Error("grpc error", log.Err(err))
		}
	}()

	var msrv *http.Server
	mlis := opts.MetricsListener
	if mlis == nil && opts.MetricsAddr != "" {
		if mlis, err = net.Listen("tcp", opts.MetricsAddr); err != nil {
			gsrv.Close()
			wg.Wait()
			return err
		}
	}
	if mlis != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		msrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := msrv.Serve(mlis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics http error", log.Err(err))
			}
		}()
	}

	<-ctx.Done()
	// Stop the servers before closing the store.
	gsrv.Close()
	if msrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = msrv.Shutdown(sctx)
		cancel()
	}
	wg.Wait()
	return nil
}
