package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

func TestNewLRUReplacer(t *testing.T) {
	size := 100
	bp := newTestPool(t, size, WithReplacer(util.ReplacerLRU))

	lru, ok := bp.replacer.(*LRUReplacer)
	require.True(t, ok, "lru replacer")
	assert.Equal(t, util.ReplacerLRU, lru.Name())
	assert.Equal(t, 0, lru.freeHead, "freeHead should be at first index 0")
	assert.Equal(t, -1, lru.lruHead, "lruHead should be -1")
	assert.Equal(t, -1, lru.lruTail, "lruTail should be -1")

	// Free list: 0→1→...→size-1→-1
	idx := lru.freeHead
	for i := 0; i < size; i++ {
		assert.Equal(t, i, idx, "free list at %d", i)
		idx = lru.nextFree[idx]
	}
	assert.Equal(t, -1, idx, "free list end")
}

func TestLRUEvictionOrder(t *testing.T) {
	f := newCountingFile("lru.db")
	f.seed(t, 4)
	bp := newTestPool(t, 3, WithReplacer(util.ReplacerLRU))
	lru := bp.replacer.(*LRUReplacer)

	for _, id := range []util.PageID{1, 2, 3, 1} {
		h, err := bp.FetchPage(f, id)
		require.NoError(t, err)
		require.NoError(t, h.Release(false))
	}
	assert.Equal(t, -1, lru.freeHead, "free list used up")
	assert.Equal(t, []int{1, 2, 0}, lruOrder(lru), "page 1 touched last")

	h, err := bp.FetchPage(f, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, h.frameNo, "least recently used frame reused")
	_, ok := bp.index.lookup(f, 2)
	assert.False(t, ok, "page 2 evicted")
	assert.Equal(t, []int{2, 0, 1}, lruOrder(lru))
	checkInvariants(t, bp)
}

func TestLRUSkipsPinned(t *testing.T) {
	f := newCountingFile("lru.db")
	f.seed(t, 3)
	bp := newTestPool(t, 2, WithReplacer(util.ReplacerLRU))

	_, err := bp.FetchPage(f, 1) // pinned, least recent
	require.NoError(t, err)
	h, err := bp.FetchPage(f, 2)
	require.NoError(t, err)
	require.NoError(t, h.Release(false))

	h, err = bp.FetchPage(f, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, h.frameNo)
	_, ok := bp.index.lookup(f, 1)
	assert.True(t, ok, "pinned page kept")
	checkInvariants(t, bp)
}

func TestLRUDisposeFreesFrame(t *testing.T) {
	f := newCountingFile("lru.db")
	f.seed(t, 3)
	bp := newTestPool(t, 2, WithReplacer(util.ReplacerLRU))
	lru := bp.replacer.(*LRUReplacer)

	for _, id := range []util.PageID{1, 2} {
		h, err := bp.FetchPage(f, id)
		require.NoError(t, err)
		require.NoError(t, h.Release(false))
	}

	require.NoError(t, bp.DisposePage(f, 2))
	assert.Equal(t, 1, lru.freeHead, "frame returned to free list")
	assert.False(t, lru.inList[1])
	assert.Equal(t, []int{0}, lruOrder(lru))

	h, err := bp.FetchPage(f, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, h.frameNo, "free frame used before evicting")
	assert.Equal(t, uint64(0), bp.Stats().Evictions)
	checkInvariants(t, bp)
}

func lruOrder(lru *LRUReplacer) []int {
	order := []int{}
	for i := lru.lruHead; i != -1; i = lru.nextIdx[i] {
		order = append(order, i)
	}
	return order
}
