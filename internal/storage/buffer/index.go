package buffer

import (
	"fmt"

	"github.com/bietkhonhungvandi212/clockpool/internal/storage/file"
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

type pageKey struct {
	file   file.Filer
	pageID util.PageID
}

// residentIndex maps (file, page) to the frame holding it. It has an entry
// exactly for the valid frames.
type residentIndex struct {
	table map[pageKey]int
}

func newResidentIndex(poolSize int) *residentIndex {
	return &residentIndex{
		table: make(map[pageKey]int, int(float64(poolSize)*1.2)+1),
	}
}

func (ri *residentIndex) lookup(f file.Filer, pageID util.PageID) (int, bool) {
	frameNo, ok := ri.table[pageKey{f, pageID}]
	return frameNo, ok
}

func (ri *residentIndex) insert(f file.Filer, pageID util.PageID, frameNo int) error {
	key := pageKey{f, pageID}
	if old, ok := ri.table[key]; ok {
		return fmt.Errorf("insert %s page %d at frame %d: already at frame %d: %w",
			f.Name(), pageID, frameNo, old, util.ErrIndex)
	}
	ri.table[key] = frameNo
	return nil
}

func (ri *residentIndex) remove(f file.Filer, pageID util.PageID) error {
	key := pageKey{f, pageID}
	if _, ok := ri.table[key]; !ok {
		return fmt.Errorf("remove %s page %d: no entry: %w", f.Name(), pageID, util.ErrIndex)
	}
	delete(ri.table, key)
	return nil
}

func (ri *residentIndex) len() int { return len(ri.table) }
