package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

func TestResidentIndex(t *testing.T) {
	f1 := newCountingFile("one.db")
	f2 := newCountingFile("two.db")
	ri := newResidentIndex(4)

	t.Run("InsertLookup", func(t *testing.T) {
		require.NoError(t, ri.insert(f1, 7, 0))
		require.NoError(t, ri.insert(f2, 7, 1))

		frameNo, ok := ri.lookup(f1, 7)
		assert.True(t, ok)
		assert.Equal(t, 0, frameNo)
		frameNo, ok = ri.lookup(f2, 7)
		assert.True(t, ok)
		assert.Equal(t, 1, frameNo, "keyed by file as well as page")

		_, ok = ri.lookup(f1, 8)
		assert.False(t, ok)
		assert.Equal(t, 2, ri.len())
	})

	t.Run("DuplicateInsert", func(t *testing.T) {
		err := ri.insert(f1, 7, 3)
		assert.ErrorIs(t, err, util.ErrIndex)
		frameNo, _ := ri.lookup(f1, 7)
		assert.Equal(t, 0, frameNo, "existing entry kept")
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, ri.remove(f1, 7))
		_, ok := ri.lookup(f1, 7)
		assert.False(t, ok)
		assert.ErrorIs(t, ri.remove(f1, 7), util.ErrIndex, "missing entry")
		assert.Equal(t, 1, ri.len())
	})
}

func TestFrameDesc(t *testing.T) {
	f := newCountingFile("frame.db")
	ft := newFrameTable(2)
	desc := &ft.descs[1]

	desc.set(f, 3)
	assert.True(t, desc.valid)
	assert.True(t, desc.refbit)
	assert.Equal(t, int32(1), desc.pinCnt)
	assert.Equal(t, uint64(1), desc.gen)

	desc.dirty = true
	desc.clear()
	assert.False(t, desc.valid)
	assert.False(t, desc.dirty)
	assert.Nil(t, desc.file)
	assert.Equal(t, 1, desc.frameNo, "frame number is fixed")
	assert.Equal(t, uint64(1), desc.gen, "generation survives clear")

	desc.set(f, 4)
	assert.Equal(t, uint64(2), desc.gen)
}
