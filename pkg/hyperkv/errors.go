package hyperkv

import "github.com/rzbill/hyperkv/internal/kverr"

var (
	ErrIntegrity     = kverr.ErrIntegrity
	ErrAuthorization = kverr.ErrAuthorization
	ErrNotFound      = kverr.ErrNotFound
	ErrChannel       = kverr.ErrChannel
	ErrInvalidKey    = kverr.ErrInvalidKey
	ErrNotWritable   = kverr.ErrNotWritable
	ErrClosed        = kverr.ErrClosed
	ErrTooLarge      = kverr.ErrTooLarge
)
