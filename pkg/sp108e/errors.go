package sp108e

import "github.com/jmylchreest/sp108ed/internal/errors"

// Error kinds returned by this package. Match them with errors.Is.
var (
	ErrInvalidArgument  = errors.ErrInvalidInput
	ErrConnect          = errors.ErrConnect
	ErrIO               = errors.ErrIO
	ErrReadTimeout      = errors.ErrReadTimeout
	ErrRetriesExhausted = errors.ErrRetriesExhausted
	ErrDecode           = errors.ErrDecode
	ErrClosed           = errors.ErrClosed
)
