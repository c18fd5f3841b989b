package cache

import "errors"

var (
	// ErrUnavailable indicates the backing store could not serve a request.
	ErrUnavailable = errors.New("cache unavailable")

	// ErrCorruptEntry indicates a stored payload that cannot be decoded or has
	// the wrong vector dimension.
	ErrCorruptEntry = errors.New("corrupt cache entry")
)
