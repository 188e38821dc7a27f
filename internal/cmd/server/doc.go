// Package serverrun exposes the Run entrypoint behind `hyperkv serve`: it
// opens (or creates) a store, serves replication over gRPC and optionally
// exposes Prometheus metrics over HTTP, until the context is cancelled.
//
// Example:
//
//	opts := serverrun.Options{Dir: "./data/store", Listen: ":7464", MetricsAddr: ":9464", Create: true}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
