// Package kverr holds the error taxonomy shared by every hyperkv layer.
// Callers match with errors.Is; concrete failures wrap one of these with
// fmt.Errorf("%w: ...").
package kverr

import "errors"

var (
	// ErrIntegrity marks a malformed, out-of-order or tampered record. The
	// record is rejected and nothing is appended.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrAuthorization marks an operation attempted by or on a feed that is
	// not reachable from the source feed.
	ErrAuthorization = errors.New("feed not authorized")
	// ErrNotFound marks an absent key, feed or offset.
	ErrNotFound = errors.New("not found")
	// ErrChannel marks a replication transport failure.
	ErrChannel = errors.New("replication channel failed")
)

var (
	ErrInvalidKey  = errors.New("invalid key")
	ErrNotWritable = errors.New("feed is not writable by this identity")
	ErrClosed      = errors.New("store is closed")
	// ErrTooLarge marks an entry that no replication frame could carry.
	ErrTooLarge    = errors.New("entry too large")
)
