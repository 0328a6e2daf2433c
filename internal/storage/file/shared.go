package file

import (
	"github.com/bietkhonhungvandi212/clockpool/internal/storage/page"
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

// Filer is the paged storage the buffer pool caches. Page numbers start
// at 1; util.InvalidPageID is never handed out.
//
// Implementations are compared by identity, so they must be pointer types.
type Filer interface {
	Name() string
	ReadPage(pageId util.PageID, dst *page.Page) error
	WritePage(pageId util.PageID, src *page.Page) error
	AllocatePage() (util.PageID, error)
	DisposePage(pageId util.PageID) error
}

var (
	_ Filer = (*FileManager)(nil)
	_ Filer = (*MemFile)(nil)
)
