package buffer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bietkhonhungvandi212/clockpool/internal/storage/file"
	"github.com/bietkhonhungvandi212/clockpool/internal/storage/page"
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

var errInjected = errors.New("injected disk failure")

// countingFile wraps a Filer, counting calls and optionally failing them.
type countingFile struct {
	file.Filer
	reads, writes, allocs, disposes int
	failRead, failWrite             bool
	failAlloc, failDispose          bool
	written                         map[util.PageID][]byte
}

func newCountingFile(name string) *countingFile {
	return &countingFile{
		Filer:   file.NewMemFile(name),
		written: make(map[util.PageID][]byte),
	}
}

func (c *countingFile) ReadPage(pageId util.PageID, dst *page.Page) error {
	if c.failRead {
		return errInjected
	}
	c.reads++
	return c.Filer.ReadPage(pageId, dst)
}

func (c *countingFile) WritePage(pageId util.PageID, src *page.Page) error {
	if c.failWrite {
		return errInjected
	}
	c.writes++
	c.written[pageId] = append([]byte(nil), src.Data[:]...)
	return c.Filer.WritePage(pageId, src)
}

func (c *countingFile) AllocatePage() (util.PageID, error) {
	if c.failAlloc {
		return util.InvalidPageID, errInjected
	}
	c.allocs++
	return c.Filer.AllocatePage()
}

func (c *countingFile) DisposePage(pageId util.PageID) error {
	if c.failDispose {
		return errInjected
	}
	c.disposes++
	return c.Filer.DisposePage(pageId)
}

// seed creates n pages holding "Page <id> test data" and resets counters.
func (c *countingFile) seed(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id, err := c.Filer.AllocatePage()
		require.NoError(t, err)
		p := page.CreateTestPage(id, []byte(pageText(id)))
		require.NoError(t, c.Filer.WritePage(id, p))
	}
}

func (c *countingFile) resetCounters() {
	c.reads, c.writes, c.allocs, c.disposes = 0, 0, 0, 0
}

func pageText(id util.PageID) string {
	return fmt.Sprintf("Page %d test data", id)
}

func newTestPool(t *testing.T, size int, opts ...Option) *BufferPool {
	t.Helper()
	bp, err := NewBufferPool(size, opts...)
	require.NoError(t, err)
	return bp
}

// checkInvariants asserts the frame table and the index agree.
func checkInvariants(t *testing.T, bp *BufferPool) {
	t.Helper()
	valid := 0
	for i := range bp.frames.descs {
		desc := &bp.frames.descs[i]
		require.GreaterOrEqual(t, desc.pinCnt, int32(0), "frame %d pin count", i)
		if !desc.valid {
			require.False(t, desc.dirty, "invalid frame %d dirty", i)
			require.False(t, desc.refbit, "invalid frame %d referenced", i)
			require.Zero(t, desc.pinCnt, "invalid frame %d pinned", i)
			continue
		}
		valid++
		frameNo, ok := bp.index.lookup(desc.file, desc.pageID)
		require.True(t, ok, "frame %d missing from index", i)
		require.Equal(t, i, frameNo, "index entry of frame %d", i)
	}
	require.Equal(t, valid, bp.index.len(), "index size")
}

func readText(t *testing.T, h *PageHandle, n int) string {
	t.Helper()
	data, err := h.Data()
	require.NoError(t, err)
	return string(data[:n])
}
