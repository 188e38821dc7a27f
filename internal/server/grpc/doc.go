// Package grpcserver carries replication sessions over gRPC.
//
// A session is one bidirectional stream on hyperkv.v1.Replication/Replicate.
// Each message is a google.protobuf.BytesValue holding the next chunk of one
// side's replication byte stream; framing stays in the replicate package.
// The server also registers the standard gRPC health service.
//
//	s := grpcserver.New(store, logger)
//	go s.ListenAndServe(ctx, ":7464")
//
//	conn, _ := grpcserver.Dial(ctx, "peer:7464")
//	err := grpcserver.Sync(ctx, conn, store)
package grpcserver
