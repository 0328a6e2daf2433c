package util

import (
	"fmt"
)

// PageID represents a page number inside one page file
type PageID uint64

// InvalidPageID marks a frame or handle that holds no page
const InvalidPageID PageID = 0

// PageSize represents the standard page size (4KB)
const PageSize = 4096

// MaxMapSize bounds how far a page file mapping may grow (1GB)
const MaxMapSize = 1 << 30

// PoolError records the buffer pool operation, file and page that failed.
// Err is one of the sentinels in errors.go, possibly joined with a cause.
type PoolError struct {
	Op     string
	File   string
	PageID PageID
	Err    error
}

func (e *PoolError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s page %d: %v", e.Op, e.PageID, e.Err)
	}
	return fmt.Sprintf("%s %s page %d: %v", e.Op, e.File, e.PageID, e.Err)
}

func (e *PoolError) Unwrap() error { return e.Err }

// NewPoolError creates a new buffer pool error
func NewPoolError(op, file string, pageID PageID, err error) *PoolError {
	return &PoolError{
		Op:     op,
		File:   file,
		PageID: pageID,
		Err:    err,
	}
}
