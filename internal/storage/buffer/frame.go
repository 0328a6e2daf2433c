package buffer

import (
	"github.com/bietkhonhungvandi212/clockpool/internal/storage/file"
	"github.com/bietkhonhungvandi212/clockpool/internal/storage/page"
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

// frameDesc describes one pool slot. While valid is false the frame is
// clean, unreferenced and unpinned.
type frameDesc struct {
	frameNo int
	file    file.Filer
	pageID  util.PageID
	valid   bool
	dirty   bool
	refbit  bool
	pinCnt  int32
	gen     uint64 // bumped on every population, survives clear
}

// set records a freshly populated frame: pinned once, referenced, clean.
func (d *frameDesc) set(f file.Filer, pageID util.PageID) {
	d.file = f
	d.pageID = pageID
	d.valid = true
	d.dirty = false
	d.refbit = true
	d.pinCnt = 1
	d.gen++
}

func (d *frameDesc) clear() {
	d.file = nil
	d.pageID = util.InvalidPageID
	d.valid = false
	d.dirty = false
	d.refbit = false
	d.pinCnt = 0
}

// frameTable is the frame store: descriptors and the page buffers they own.
// Neither slice is reallocated for the lifetime of the pool.
type frameTable struct {
	descs []frameDesc
	pages []page.Page
}

func newFrameTable(size int) *frameTable {
	ft := &frameTable{
		descs: make([]frameDesc, size),
		pages: make([]page.Page, size),
	}
	for i := range ft.descs {
		ft.descs[i].frameNo = i
	}
	return ft
}

func (ft *frameTable) size() int { return len(ft.descs) }
