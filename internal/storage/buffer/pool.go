package buffer

import (
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/bietkhonhungvandi212/clockpool/internal/storage/file"
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

// BufferPool caches pages of one or more Filers in a fixed set of frames.
//
// Every public method takes the pool mutex for its whole duration,
// including the page file I/O it performs. Pin counts keep in-use pages
// resident; they do not serialize callers.
type BufferPool struct {
	frames   *frameTable
	index    *residentIndex
	replacer Replacer
	stats    BufStats
	metrics  *poolMetrics
	logger   *zap.Logger
	mu       sync.Mutex
}

type poolOptions struct {
	replacer string
	logger   *zap.Logger
	meter    metric.Meter
}

type Option func(*poolOptions)

// WithReplacer selects util.ReplacerClock (default) or util.ReplacerLRU.
func WithReplacer(policy string) Option {
	return func(o *poolOptions) { o.replacer = policy }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *poolOptions) { o.logger = l }
}

func WithMeter(m metric.Meter) Option {
	return func(o *poolOptions) { o.meter = m }
}

func NewBufferPool(size int, opts ...Option) (*BufferPool, error) {
	if size <= 0 {
		return nil, util.ErrInvalidPoolSize
	}

	o := poolOptions{
		replacer: util.ReplacerClock,
		logger:   zap.NewNop(),
		meter:    noop.NewMeterProvider().Meter(""),
	}
	for _, opt := range opts {
		opt(&o)
	}

	bp := &BufferPool{
		frames: newFrameTable(size),
		index:  newResidentIndex(size),
		logger: o.logger,
	}
	replacer, err := newReplacer(o.replacer, bp.frames, bp.evict)
	if err != nil {
		return nil, err
	}
	bp.replacer = replacer

	if bp.metrics, err = newPoolMetrics(o.meter, replacer.Name()); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	bp.logger.Info("buffer pool initialized",
		zap.Int("frames", size), zap.String("replacer", replacer.Name()))
	return bp, nil
}

// Size is the number of frames.
func (bp *BufferPool) Size() int { return bp.frames.size() }

// FetchPage pins pageID of f, reading it from f on a miss.
func (bp *BufferPool) FetchPage(f file.Filer, pageID util.PageID) (*PageHandle, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.stats.Accesses++
	if frameNo, ok := bp.index.lookup(f, pageID); ok {
		desc := &bp.frames.descs[frameNo]
		desc.pinCnt++
		desc.refbit = true
		bp.replacer.Touch(frameNo)
		bp.stats.Hits++
		bp.metrics.add(bp.metrics.hits)
		return bp.handle(frameNo), nil
	}
	bp.metrics.add(bp.metrics.misses)

	frameNo, err := bp.replacer.Victim()
	if err != nil {
		return nil, bp.opErr("fetch", f, pageID, err)
	}

	if err := f.ReadPage(pageID, &bp.frames.pages[frameNo]); err != nil {
		bp.release(frameNo)
		return nil, bp.opErr("fetch", f, pageID, ioError(err))
	}
	bp.stats.DiskReads++

	if err := bp.populate(frameNo, f, pageID); err != nil {
		return nil, bp.opErr("fetch", f, pageID, err)
	}
	bp.logger.Debug("page read",
		zap.String("file", f.Name()), zap.Uint64("page", uint64(pageID)), zap.Int("frame", frameNo))
	return bp.handle(frameNo), nil
}

// UnpinPage drops one pin on a resident page. dirty marks the page for
// write-back; it is never cleared here.
func (bp *BufferPool) UnpinPage(f file.Filer, pageID util.PageID, dirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameNo, ok := bp.index.lookup(f, pageID)
	if !ok {
		return bp.opErr("unpin", f, pageID, util.ErrNotResident)
	}
	desc := &bp.frames.descs[frameNo]
	if dirty {
		desc.dirty = true
	}
	if desc.pinCnt <= 0 {
		return bp.opErr("unpin", f, pageID, util.ErrAlreadyUnpinned)
	}
	desc.pinCnt--
	return nil
}

// AllocatePage reserves a new page in f and pins a zeroed frame for it.
func (bp *BufferPool) AllocatePage(f file.Filer) (util.PageID, *PageHandle, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pageID, err := f.AllocatePage()
	if err != nil {
		return util.InvalidPageID, nil, bp.opErr("allocate", f, util.InvalidPageID, ioError(err))
	}

	frameNo, err := bp.replacer.Victim()
	if err != nil {
		// give the reservation back rather than leak it
		if derr := f.DisposePage(pageID); derr != nil {
			bp.logger.Warn("orphaned allocated page",
				zap.String("file", f.Name()), zap.Uint64("page", uint64(pageID)), zap.Error(derr))
		}
		return util.InvalidPageID, nil, bp.opErr("allocate", f, pageID, err)
	}

	buf := &bp.frames.pages[frameNo]
	buf.Reset()
	buf.Header.PageID = pageID

	if err := bp.populate(frameNo, f, pageID); err != nil {
		return util.InvalidPageID, nil, bp.opErr("allocate", f, pageID, err)
	}
	bp.logger.Debug("page allocated",
		zap.String("file", f.Name()), zap.Uint64("page", uint64(pageID)), zap.Int("frame", frameNo))
	return pageID, bp.handle(frameNo), nil
}

// DisposePage drops an unpinned page from the pool, discarding unwritten
// changes, and frees it in f. A page that is not resident is only freed
// in f; the index is not consulted further.
func (bp *BufferPool) DisposePage(f file.Filer, pageID util.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameNo, ok := bp.index.lookup(f, pageID); ok {
		if bp.frames.descs[frameNo].pinCnt > 0 {
			return bp.opErr("dispose", f, pageID, util.ErrPagePinned)
		}
		if err := bp.index.remove(f, pageID); err != nil {
			return bp.opErr("dispose", f, pageID, err)
		}
		bp.release(frameNo)
	}

	if err := f.DisposePage(pageID); err != nil {
		return bp.opErr("dispose", f, pageID, ioError(err))
	}
	return nil
}

// FlushFile writes back every dirty page of f and evicts all of f's pages.
// If any page of f is pinned nothing is touched and util.ErrPagePinned is
// returned. A write failure stops the flush: pages handled before it are
// gone from the pool, the failing page stays resident and dirty.
func (bp *BufferPool) FlushFile(f file.Filer) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for i := range bp.frames.descs {
		desc := &bp.frames.descs[i]
		if desc.valid && desc.file == f && desc.pinCnt > 0 {
			return bp.opErr("flush", f, desc.pageID, util.ErrPagePinned)
		}
	}

	flushed := 0
	for i := range bp.frames.descs {
		desc := &bp.frames.descs[i]
		if !desc.valid || desc.file != f {
			continue
		}
		if desc.dirty {
			if err := bp.writeBack(desc); err != nil {
				return bp.opErr("flush", f, desc.pageID, err)
			}
		}
		if err := bp.index.remove(f, desc.pageID); err != nil {
			return bp.opErr("flush", f, desc.pageID, err)
		}
		bp.release(i)
		flushed++
	}

	bp.logger.Debug("file flushed", zap.String("file", f.Name()), zap.Int("frames", flushed))
	return nil
}

// FlushPage writes a resident dirty page back and keeps it cached.
func (bp *BufferPool) FlushPage(f file.Filer, pageID util.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameNo, ok := bp.index.lookup(f, pageID)
	if !ok {
		return bp.opErr("flush page", f, pageID, util.ErrNotResident)
	}
	desc := &bp.frames.descs[frameNo]
	if !desc.dirty {
		return nil
	}
	if err := bp.writeBack(desc); err != nil {
		return bp.opErr("flush page", f, pageID, err)
	}
	return nil
}

// Close writes every dirty page back and empties the pool. Write failures
// are logged, never returned: there is nobody left to handle them.
func (bp *BufferPool) Close() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for i := range bp.frames.descs {
		desc := &bp.frames.descs[i]
		if !desc.valid {
			continue
		}
		if desc.dirty {
			if err := bp.writeBack(desc); err != nil {
				bp.logger.Warn("write-back failed at close",
					zap.String("file", desc.file.Name()),
					zap.Uint64("page", uint64(desc.pageID)),
					zap.Error(err))
			}
		}
		if desc.pinCnt > 0 {
			bp.logger.Warn("page still pinned at close",
				zap.String("file", desc.file.Name()),
				zap.Uint64("page", uint64(desc.pageID)),
				zap.Int32("pins", desc.pinCnt))
		}
		_ = bp.index.remove(desc.file, desc.pageID)
		bp.release(i)
	}
}

// Stats returns a copy of the activity counters.
func (bp *BufferPool) Stats() BufStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.stats
}

func (bp *BufferPool) ClearStats() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.stats = BufStats{}
}

// ===================== HELPER FUNCTION =====================

// evict is the replacer's callback for reclaiming a valid unpinned frame.
func (bp *BufferPool) evict(frameNo int) error {
	desc := &bp.frames.descs[frameNo]
	if desc.dirty {
		if err := bp.writeBack(desc); err != nil {
			return err
		}
	}
	if err := bp.index.remove(desc.file, desc.pageID); err != nil {
		return err
	}

	bp.logger.Debug("frame evicted",
		zap.String("file", desc.file.Name()), zap.Uint64("page", uint64(desc.pageID)), zap.Int("frame", frameNo))
	bp.stats.Evictions++
	bp.metrics.add(bp.metrics.evictions)
	desc.clear()
	return nil
}

func (bp *BufferPool) writeBack(desc *frameDesc) error {
	if err := desc.file.WritePage(desc.pageID, &bp.frames.pages[desc.frameNo]); err != nil {
		return ioError(err)
	}
	desc.dirty = false
	bp.stats.DiskWrites++
	bp.metrics.add(bp.metrics.writebacks)
	return nil
}

// populate indexes a claimed frame and marks it pinned and referenced.
// On an index collision the frame is released again.
func (bp *BufferPool) populate(frameNo int, f file.Filer, pageID util.PageID) error {
	if err := bp.index.insert(f, pageID, frameNo); err != nil {
		bp.release(frameNo)
		return err
	}
	bp.frames.descs[frameNo].set(f, pageID)
	bp.replacer.Touch(frameNo)
	return nil
}

// release returns a frame to the invalid state. The caller has already
// removed any index entry.
func (bp *BufferPool) release(frameNo int) {
	bp.frames.descs[frameNo].clear()
	bp.frames.pages[frameNo].Reset()
	bp.replacer.Remove(frameNo)
}

func (bp *BufferPool) handle(frameNo int) *PageHandle {
	desc := &bp.frames.descs[frameNo]
	return &PageHandle{
		pool:    bp,
		frameNo: frameNo,
		file:    desc.file,
		pageID:  desc.pageID,
		gen:     desc.gen,
	}
}

func (bp *BufferPool) opErr(op string, f file.Filer, pageID util.PageID, err error) error {
	if errors.Is(err, util.ErrIO) {
		bp.metrics.add(bp.metrics.ioErrors)
	}
	name := ""
	if f != nil {
		name = f.Name()
	}
	return util.NewPoolError(op, name, pageID, err)
}

func ioError(err error) error {
	return fmt.Errorf("%w: %w", util.ErrIO, err)
}
