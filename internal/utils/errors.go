package util

import "errors"

// Buffer pool outcomes. Every public BufferPool operation reports exactly
// one of these through a *PoolError.
var (
	ErrIO              = errors.New("i/o error")
	ErrPoolExhausted   = errors.New("buffer pool exhausted: all frames pinned")
	ErrNotResident     = errors.New("page is not resident")
	ErrAlreadyUnpinned = errors.New("page is already unpinned")
	ErrPagePinned      = errors.New("page is pinned")
	ErrIndex           = errors.New("resident page index inconsistent")
	ErrStaleHandle     = errors.New("page handle is stale")
)

var (
	ErrInvalidPageId       = errors.New("invalid page id")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrInvalidInitialPages = errors.New("initial pages must be positive")
	ErrMaxMapSizeExceeded  = errors.New("size exceeds maximum mapping size")
	ErrPageOutOfBounds     = errors.New("page out of bounds")
	ErrPageFree            = errors.New("page is not allocated")
	ErrBadFileHeader       = errors.New("bad page file header")
	ErrFileManagerNil      = errors.New("file manager is nil")
	ErrFileClosed          = errors.New("file is closed")
	ErrInvalidPoolSize     = errors.New("invalid pool size")
	ErrUnknownReplacer     = errors.New("unknown replacer policy")
)
