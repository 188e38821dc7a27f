package grpcserver

import (
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName     = "hyperkv.v1.Replication"
	replicateMethod = "/" + serviceName + "/Replicate"
	chunkSize       = 32 << 10
)

type replicationServer interface {
	replicate(stream grpc.ServerStream) error
}

var replicationDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*replicationServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Replicate",
		Handler:       replicateHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
	Metadata: "hyperkv/v1/replication.proto",
}

func replicateHandler(srv any, stream grpc.ServerStream) error {
	return srv.(replicationServer).replicate(stream)
}

// msgStream is the part of grpc.ServerStream and grpc.ClientStream the
// bridge needs.
type msgStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// chunkReader exposes the peer's chunks as a byte stream.
type chunkReader struct {
	s   msgStream
	buf []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		var m wrapperspb.BytesValue
		if err := r.s.RecvMsg(&m); err != nil {
			if errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, err
		}
		r.buf = m.GetValue()
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// sendAll forwards src to the peer in chunks until src ends. When sending
// fails, src is drained so its writer never blocks.
func sendAll(s msgStream, src io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			if serr := s.SendMsg(wrapperspb.Bytes(chunk)); serr != nil {
				_, _ = io.Copy(io.Discard, src)
				return serr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
