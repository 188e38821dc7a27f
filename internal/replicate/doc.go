// Package replicate implements the duplex exchange that brings two stores'
// feed sets up to date with each other.
//
// A Half is one store's side of a session. It exposes two independent
// streams: Outbound, the bytes this side emits, and Inbound, the bytes it
// consumes. Both must be wired to the peer's opposite stream; Pipe does this
// for two in-process halves. A half wired in one direction only still pushes
// (or receives) data but never reaches Converged.
//
// Every frame is a uvarint length followed by one protobuf-wire message:
//
//	Handshake{version, source, peerID}
//	Have{feed, length}
//	Request{feed, start, end}
//	Data{feed, records}
//	End{}
//	Synced{}
package replicate
