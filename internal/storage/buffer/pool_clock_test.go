package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

type frameState struct {
	valid, refbit bool
	pinCnt        int32
}

// newClockFixture builds a clock over frames in the given states and
// records which frames it asks to evict.
func newClockFixture(states []frameState, evictErr error) (*ClockReplacer, *frameTable, *[]int) {
	ft := newFrameTable(len(states))
	for i, s := range states {
		ft.descs[i].valid = s.valid
		ft.descs[i].refbit = s.refbit
		ft.descs[i].pinCnt = s.pinCnt
	}
	evicted := []int{}
	evict := func(frameNo int) error {
		if evictErr != nil {
			return evictErr
		}
		evicted = append(evicted, frameNo)
		ft.descs[frameNo].clear()
		return nil
	}
	return newClockReplacer(ft, evict), ft, &evicted
}

func TestClockReplacer(t *testing.T) {
	t.Run("ClaimsInvalidFramesInOrder", func(t *testing.T) {
		clock, ft, evicted := newClockFixture(make([]frameState, 3), nil)
		assert.Equal(t, 2, clock.hand)

		for want := 0; want < 3; want++ {
			frameNo, err := clock.Victim()
			require.NoError(t, err)
			assert.Equal(t, want, frameNo)
			assert.True(t, ft.descs[frameNo].valid, "claimed frame marked valid")
		}
		assert.Empty(t, *evicted)
		assert.Equal(t, 2, clock.hand)
	})

	t.Run("SecondChance", func(t *testing.T) {
		clock, ft, evicted := newClockFixture([]frameState{
			{valid: true, refbit: true},
			{valid: true},
			{valid: true, refbit: true, pinCnt: 1},
		}, nil)

		frameNo, err := clock.Victim()
		require.NoError(t, err)
		assert.Equal(t, 1, frameNo)
		assert.Equal(t, []int{1}, *evicted)
		assert.False(t, ft.descs[0].refbit, "frame 0 used its second chance")
		assert.True(t, ft.descs[1].valid)
		assert.True(t, ft.descs[2].refbit, "hand never reached frame 2")
	})

	t.Run("ReferencedFramesGoOnSecondSweep", func(t *testing.T) {
		clock, _, evicted := newClockFixture([]frameState{
			{valid: true, refbit: true, pinCnt: 1},
			{valid: true, refbit: true},
			{valid: true, refbit: true},
		}, nil)

		frameNo, err := clock.Victim()
		require.NoError(t, err)
		assert.Equal(t, 1, frameNo)
		assert.Equal(t, []int{1}, *evicted)
	})

	t.Run("AllPinned", func(t *testing.T) {
		clock, _, evicted := newClockFixture([]frameState{
			{valid: true, pinCnt: 1},
			{valid: true, pinCnt: 2},
			{valid: true, pinCnt: 1},
		}, nil)

		_, err := clock.Victim()
		assert.ErrorIs(t, err, util.ErrPoolExhausted)
		assert.Empty(t, *evicted)
		assert.Equal(t, 2, clock.hand, "one full sweep")
	})

	t.Run("AllPinnedAndReferenced", func(t *testing.T) {
		clock, ft, evicted := newClockFixture([]frameState{
			{valid: true, refbit: true, pinCnt: 1},
			{valid: true, refbit: true, pinCnt: 1},
		}, nil)

		_, err := clock.Victim()
		assert.ErrorIs(t, err, util.ErrPoolExhausted)
		assert.Empty(t, *evicted)
		for i := range ft.descs {
			assert.False(t, ft.descs[i].refbit, "refbit %d cleared", i)
			assert.Equal(t, int32(1), ft.descs[i].pinCnt, "pin %d untouched", i)
		}
	})

	t.Run("SingleFrame", func(t *testing.T) {
		clock, _, evicted := newClockFixture([]frameState{{valid: true, refbit: true}}, nil)

		frameNo, err := clock.Victim()
		require.NoError(t, err)
		assert.Equal(t, 0, frameNo)
		assert.Equal(t, []int{0}, *evicted)
	})

	t.Run("EvictFailure", func(t *testing.T) {
		clock, ft, _ := newClockFixture([]frameState{{valid: true}}, errInjected)

		_, err := clock.Victim()
		assert.ErrorIs(t, err, errInjected)
		assert.True(t, ft.descs[0].valid, "victim left in place")
	})
}
