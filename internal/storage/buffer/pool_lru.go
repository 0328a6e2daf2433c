package buffer

import (
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

// LRUReplacer keeps valid frames in an index-linked list ordered by last
// access, plus a free list of frames that hold nothing.
type LRUReplacer struct {
	frames *frameTable
	evict  evictFunc

	nextIdx  []int
	prevIdx  []int
	inList   []bool
	lruHead  int   // Head of LRU (evict first)
	lruTail  int   // Tail of LRU (most recent)
	nextFree []int // Free list for allocation
	freeHead int   // Head of free list
}

func newLRUReplacer(frames *frameTable, evict evictFunc) *LRUReplacer {
	size := frames.size()
	lr := &LRUReplacer{
		frames:   frames,
		evict:    evict,
		nextIdx:  make([]int, size),
		prevIdx:  make([]int, size),
		inList:   make([]bool, size),
		lruHead:  -1,
		lruTail:  -1,
		nextFree: make([]int, size),
		freeHead: 0,
	}
	for i := 0; i < size; i++ {
		lr.nextIdx[i] = -1
		lr.prevIdx[i] = -1
		lr.nextFree[i] = i + 1
	}
	lr.nextFree[size-1] = -1
	return lr
}

func (lr *LRUReplacer) Name() string { return util.ReplacerLRU }

func (lr *LRUReplacer) Victim() (int, error) {
	if freeIdx := lr.allocFromFree(); freeIdx != -1 {
		lr.frames.descs[freeIdx].valid = true
		return freeIdx, nil
	}

	for current := lr.lruHead; current != -1; current = lr.nextIdx[current] {
		desc := &lr.frames.descs[current]
		if desc.pinCnt != 0 {
			continue
		}
		if err := lr.evict(current); err != nil {
			return -1, err
		}
		lr.unlink(current)
		desc.valid = true
		return current, nil
	}
	return -1, util.ErrPoolExhausted
}

// Touch moves frameNo to the most recently used end.
func (lr *LRUReplacer) Touch(frameNo int) {
	if lr.inList[frameNo] {
		lr.unlink(frameNo)
	}
	lr.addToTail(frameNo)
}

func (lr *LRUReplacer) Remove(frameNo int) {
	if lr.inList[frameNo] {
		lr.unlink(frameNo)
	}
	lr.returnFrameToFree(frameNo)
}

func (lr *LRUReplacer) addToTail(frameIdx int) {
	tmp := lr.lruTail
	lr.lruTail = frameIdx
	lr.prevIdx[frameIdx] = tmp
	lr.nextIdx[frameIdx] = -1
	lr.inList[frameIdx] = true

	if tmp != -1 {
		lr.nextIdx[tmp] = frameIdx
	}
	if lr.lruHead == -1 {
		lr.lruHead = frameIdx
	}
}

func (lr *LRUReplacer) unlink(frameIdx int) {
	prev := lr.prevIdx[frameIdx]
	next := lr.nextIdx[frameIdx]
	isHead := prev == -1
	isTail := next == -1

	switch {
	case isHead && isTail:
		// Only one node in the list
		lr.lruHead = -1
		lr.lruTail = -1
	case isHead && !isTail:
		// Removing head, next becomes new head
		lr.lruHead = next
		lr.prevIdx[next] = -1
	case !isHead && isTail:
		// Removing tail, prev becomes new tail
		lr.lruTail = prev
		lr.nextIdx[prev] = -1
	case !isHead && !isTail:
		// Removing middle node, connect prev and next
		lr.nextIdx[prev] = next
		lr.prevIdx[next] = prev
	}

	lr.nextIdx[frameIdx] = -1
	lr.prevIdx[frameIdx] = -1
	lr.inList[frameIdx] = false
}

// allocFromFree allocates a free frame index.
func (lr *LRUReplacer) allocFromFree() int {
	if lr.freeHead == -1 {
		return -1
	}
	freeIdx := lr.freeHead
	lr.freeHead = lr.nextFree[freeIdx]
	lr.nextFree[freeIdx] = -1
	return freeIdx
}

// returnFrameToFree returns a frame to the free list.
func (lr *LRUReplacer) returnFrameToFree(frameIdx int) {
	lr.nextFree[frameIdx] = lr.freeHead
	lr.freeHead = frameIdx
}
