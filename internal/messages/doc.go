// Package messages encodes the records stored in feeds.
//
// Both Entry and Header use the protobuf wire format so that other
// implementations can read a feed without a generated schema. Field numbers:
//
//	Entry:  key=1 value=2 deleted=3 trie=4 clock=5 (packed) inflate=6 feeds=7 contentFeed=8
//	Feed:   key=1
//	Header: type=1 metadata=2
package messages
