package file

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/bietkhonhungvandi212/clockpool/internal/storage/page"
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

const fileMagic uint32 = 0x4c504b43 // "CKPL"

/**
* This module is used to read and write data from / to disk
* we will map the file to memory in disk that facilitate accessility to disk
*
* Page 0 is the file header: magic, page count and the head of the chain
* of disposed pages. A disposed page carries page.FlagFree and the number
* of the next free page in its first 8 data bytes.
**/
type FileManager struct {
	File    *os.File
	Data    []byte
	Size    int64
	mapping uintptr // windows mapping handle

	path     string
	numPages util.PageID // pages in use or free, header included
	freeHead util.PageID
	free     mapset.Set[util.PageID]
	mu       sync.Mutex
}

func NewFileManager(path string, initialPages int) (*FileManager, error) {
	if initialPages <= 0 {
		return nil, util.ErrInvalidInitialPages
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	fm := &FileManager{
		File: f,
		path: path,
		free: mapset.NewThreadUnsafeSet[util.PageID](),
	}

	if st.Size() == 0 {
		if err := mmap(fm, int64(initialPages)*int64(util.PageSize)); err != nil {
			f.Close()
			return nil, fmt.Errorf("map file fail: %w", err)
		}
		fm.numPages = 1
		fm.writeHeader()
		return fm, nil
	}

	if st.Size()%util.PageSize != 0 {
		f.Close()
		return nil, fmt.Errorf("size %d not page aligned: %w", st.Size(), util.ErrBadFileHeader)
	}
	if err := mmap(fm, st.Size()); err != nil {
		f.Close()
		return nil, fmt.Errorf("map file fail: %w", err)
	}
	if err := fm.loadHeader(); err != nil {
		_ = munmap(fm)
		f.Close()
		return nil, err
	}
	return fm, nil
}

func (fm *FileManager) Name() string { return fm.path }

// NumPages counts allocated and free pages, the header page included.
func (fm *FileManager) NumPages() int {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return int(fm.numPages)
}

// FreePages is the number of disposed pages waiting for reuse.
func (fm *FileManager) FreePages() int {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.free.Cardinality()
}

/* READ FILE */
func (fm *FileManager) ReadPage(pageId util.PageID, dst *page.Page) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if err := fm.checkLive(pageId); err != nil {
		return err
	}
	offset := int64(pageId) * int64(util.PageSize)
	if err := page.Deserialize(fm.Data[offset:offset+util.PageSize], dst); err != nil {
		return fmt.Errorf("deserialize page %d: %w", pageId, err)
	}
	if dst.Header.PageID != pageId {
		return fmt.Errorf("page %d holds id %d: %w", pageId, dst.Header.PageID, util.ErrInvalidPageId)
	}
	return nil
}

/* WRITE FILE */
func (fm *FileManager) WritePage(pageId util.PageID, src *page.Page) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if err := fm.checkLive(pageId); err != nil {
		return err
	}
	src.Header.PageID = pageId
	fm.put(pageId, src)
	return nil
}

// AllocatePage reuses the most recently disposed page, or extends the file.
// The page is written zeroed.
func (fm *FileManager) AllocatePage() (util.PageID, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.File == nil {
		return util.InvalidPageID, util.ErrFileClosed
	}

	var pageId util.PageID
	if fm.freeHead != util.InvalidPageID {
		pageId = fm.freeHead
		var fp page.Page
		offset := int64(pageId) * int64(util.PageSize)
		if err := page.Deserialize(fm.Data[offset:offset+util.PageSize], &fp); err != nil {
			return util.InvalidPageID, fmt.Errorf("[AllocatePage] free chain at %d: %w", pageId, err)
		}
		fm.freeHead = util.PageID(binary.LittleEndian.Uint64(fp.Data[0:8]))
		fm.free.Remove(pageId)
	} else {
		pageId = fm.numPages
		need := int64(pageId+1) * int64(util.PageSize)
		if need > fm.Size {
			newSize := max(fm.Size*2, need)
			if newSize > util.MaxMapSize {
				return util.InvalidPageID, util.ErrMaxMapSizeExceeded
			}
			if err := munmap(fm); err != nil {
				return util.InvalidPageID, fmt.Errorf("[AllocatePage] unmap file fail: %w", err)
			}
			if err := mmap(fm, newSize); err != nil {
				return util.InvalidPageID, fmt.Errorf("[AllocatePage] map file fail: %w", err)
			}
		}
		fm.numPages++
	}

	fm.put(pageId, &page.Page{Header: page.PageHeader{PageID: pageId}})
	fm.writeHeader()
	return pageId, nil
}

// DisposePage pushes the page onto the free chain.
func (fm *FileManager) DisposePage(pageId util.PageID) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if err := fm.checkLive(pageId); err != nil {
		return err
	}
	fp := page.Page{Header: page.PageHeader{PageID: pageId}}
	fp.Header.SetFlag(page.FlagFree)
	binary.LittleEndian.PutUint64(fp.Data[0:8], uint64(fm.freeHead))
	fm.put(pageId, &fp)

	fm.freeHead = pageId
	fm.free.Add(pageId)
	fm.writeHeader()
	return nil
}

// Sync flushes the mapping to disk.
func (fm *FileManager) Sync() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if fm.File == nil {
		return util.ErrFileClosed
	}
	return msync(fm)
}

/**
* CLOSE FUNCTION
**/
func (fm *FileManager) Close() error {
	if fm == nil {
		return nil // Idempotent
	}
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if fm.File == nil {
		return nil
	}

	var err error
	if e := msync(fm); e != nil {
		err = errors.Join(err, fmt.Errorf("[close] msync: %w", e))
	}
	if e := munmap(fm); e != nil {
		err = errors.Join(err, fmt.Errorf("[close] unmap file fail: %w", e))
	}
	if e := fm.File.Sync(); e != nil {
		err = errors.Join(err, fmt.Errorf("sync file: %w", e))
	}
	if e := fm.File.Close(); e != nil {
		err = errors.Join(err, fmt.Errorf("close file: %w", e))
	}
	fm.File = nil
	return err
}

// ===================== HELPER FUNCTION =====================
func (fm *FileManager) checkLive(pageId util.PageID) error {
	if fm.File == nil {
		return util.ErrFileClosed
	}
	if pageId == util.InvalidPageID || pageId >= fm.numPages {
		return fmt.Errorf("page %d of %d: %w", pageId, fm.numPages, util.ErrPageOutOfBounds)
	}
	if fm.free.Contains(pageId) {
		return fmt.Errorf("page %d: %w", pageId, util.ErrPageFree)
	}
	return nil
}

func (fm *FileManager) put(pageId util.PageID, p *page.Page) {
	offset := int64(pageId) * int64(util.PageSize)
	p.SerializeTo(fm.Data[offset : offset+util.PageSize])
}

func (fm *FileManager) writeHeader() {
	hp := page.Page{}
	hp.Header.SetFlag(page.FlagMeta)
	binary.LittleEndian.PutUint32(hp.Data[0:4], fileMagic)
	binary.LittleEndian.PutUint64(hp.Data[4:12], uint64(fm.numPages))
	binary.LittleEndian.PutUint64(hp.Data[12:20], uint64(fm.freeHead))
	fm.put(0, &hp)
}

func (fm *FileManager) loadHeader() error {
	var hp page.Page
	if err := page.Deserialize(fm.Data[0:util.PageSize], &hp); err != nil {
		return fmt.Errorf("header: %w: %w", util.ErrBadFileHeader, err)
	}
	if !hp.Header.HasFlag(page.FlagMeta) || binary.LittleEndian.Uint32(hp.Data[0:4]) != fileMagic {
		return util.ErrBadFileHeader
	}
	fm.numPages = util.PageID(binary.LittleEndian.Uint64(hp.Data[4:12]))
	fm.freeHead = util.PageID(binary.LittleEndian.Uint64(hp.Data[12:20]))
	if int64(fm.numPages)*util.PageSize > fm.Size || fm.numPages == 0 {
		return fmt.Errorf("page count %d: %w", fm.numPages, util.ErrBadFileHeader)
	}

	// rebuild the free set from the on-disk chain
	for next := fm.freeHead; next != util.InvalidPageID; {
		if next >= fm.numPages || fm.free.Contains(next) {
			return fmt.Errorf("free chain at %d: %w", next, util.ErrBadFileHeader)
		}
		var fp page.Page
		offset := int64(next) * int64(util.PageSize)
		if err := page.Deserialize(fm.Data[offset:offset+util.PageSize], &fp); err != nil {
			return fmt.Errorf("free chain at %d: %w", next, err)
		}
		fm.free.Add(next)
		next = util.PageID(binary.LittleEndian.Uint64(fp.Data[0:8]))
	}
	return nil
}
