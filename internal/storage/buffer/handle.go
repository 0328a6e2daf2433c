package buffer

import (
	"github.com/bietkhonhungvandi212/clockpool/internal/storage/file"
	"github.com/bietkhonhungvandi212/clockpool/internal/storage/page"
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

// PageHandle refers to a pinned page by frame number and population
// generation. It stops resolving once the frame is reused or fully
// unpinned, instead of aliasing whatever the frame holds next.
type PageHandle struct {
	pool    *BufferPool
	frameNo int
	file    file.Filer
	pageID  util.PageID
	gen     uint64
}

func (h *PageHandle) PageID() util.PageID { return h.pageID }

func (h *PageHandle) File() file.Filer { return h.file }

// Page returns the frame's buffer. Callers may read and modify it while
// they hold their pin, and must report modifications through Release or
// UnpinPage.
func (h *PageHandle) Page() (*page.Page, error) {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()

	desc := &h.pool.frames.descs[h.frameNo]
	if !desc.valid || desc.gen != h.gen || desc.pinCnt == 0 {
		return nil, h.pool.opErr("handle", h.file, h.pageID, util.ErrStaleHandle)
	}
	return &h.pool.frames.pages[h.frameNo], nil
}

// Data is the page's payload area.
func (h *PageHandle) Data() ([]byte, error) {
	p, err := h.Page()
	if err != nil {
		return nil, err
	}
	return p.Data[:], nil
}

// Release unpins the page once.
func (h *PageHandle) Release(dirty bool) error {
	return h.pool.UnpinPage(h.file, h.pageID, dirty)
}
