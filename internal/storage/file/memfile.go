package file

import (
	"fmt"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dsnet/golib/memfile"

	"github.com/bietkhonhungvandi212/clockpool/internal/storage/page"
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

// MemFile is a Filer kept entirely in memory. Page images use the same
// serialized layout as FileManager; slot 0 is reserved.
type MemFile struct {
	name     string
	db       *memfile.File
	nextPage util.PageID
	free     mapset.Set[util.PageID]
	mu       sync.Mutex
}

func NewMemFile(name string) *MemFile {
	return &MemFile{
		name:     name,
		db:       memfile.New(make([]byte, 0, util.PageSize)),
		nextPage: 1,
		free:     mapset.NewThreadUnsafeSet[util.PageID](),
	}
}

func (m *MemFile) Name() string { return m.name }

// NumPages is the number of page slots ever handed out.
func (m *MemFile) NumPages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.nextPage - 1)
}

func (m *MemFile) ReadPage(pageId util.PageID, dst *page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLive(pageId); err != nil {
		return err
	}
	buf := make([]byte, util.PageSize)
	if _, err := m.db.ReadAt(buf, int64(pageId)*util.PageSize); err != nil {
		return fmt.Errorf("read page %d: %w", pageId, err)
	}
	if err := page.Deserialize(buf, dst); err != nil {
		return fmt.Errorf("deserialize page %d: %w", pageId, err)
	}
	return nil
}

func (m *MemFile) WritePage(pageId util.PageID, src *page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLive(pageId); err != nil {
		return err
	}
	src.Header.PageID = pageId
	return m.put(pageId, src)
}

// AllocatePage reuses the lowest disposed page, or appends a new one.
func (m *MemFile) AllocatePage() (util.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pageId util.PageID
	if m.free.Cardinality() > 0 {
		pageId = slices.Min(m.free.ToSlice())
		m.free.Remove(pageId)
	} else {
		pageId = m.nextPage
		m.nextPage++
	}
	if err := m.put(pageId, &page.Page{Header: page.PageHeader{PageID: pageId}}); err != nil {
		return util.InvalidPageID, err
	}
	return pageId, nil
}

func (m *MemFile) DisposePage(pageId util.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLive(pageId); err != nil {
		return err
	}
	m.free.Add(pageId)
	return nil
}

func (m *MemFile) checkLive(pageId util.PageID) error {
	if pageId == util.InvalidPageID || pageId >= m.nextPage {
		return fmt.Errorf("page %d: %w", pageId, util.ErrPageOutOfBounds)
	}
	if m.free.Contains(pageId) {
		return fmt.Errorf("page %d: %w", pageId, util.ErrPageFree)
	}
	return nil
}

func (m *MemFile) put(pageId util.PageID, p *page.Page) error {
	buf := make([]byte, util.PageSize)
	p.SerializeTo(buf)
	if _, err := m.db.WriteAt(buf, int64(pageId)*util.PageSize); err != nil {
		return fmt.Errorf("write page %d: %w", pageId, err)
	}
	return nil
}
