package buffer

import (
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

// ClockReplacer is the second-chance policy. It reads and mutates the frame
// descriptors directly; the ref bit lives in frameDesc and is set by the
// pool on every access.
type ClockReplacer struct {
	frames *frameTable
	evict  evictFunc
	hand   int
}

func newClockReplacer(frames *frameTable, evict evictFunc) *ClockReplacer {
	return &ClockReplacer{
		frames: frames,
		evict:  evict,
		// first advance lands on frame 0
		hand: frames.size() - 1,
	}
}

func (c *ClockReplacer) Name() string { return util.ReplacerClock }

func (c *ClockReplacer) advance() {
	c.hand = (c.hand + 1) % c.frames.size()
}

// Victim sweeps at most twice around the pool: a frame whose ref bit was
// cleared on the first sweep is selectable on the second, so two sweeps
// without a victim mean everything is pinned. A sweep on which every visit
// hit a pinned frame ends the search early.
func (c *ClockReplacer) Victim() (int, error) {
	n := c.frames.size()
	numPinned := 0

	for step := 1; step <= 2*n; step++ {
		c.advance()
		desc := &c.frames.descs[c.hand]

		switch {
		case !desc.valid:
			desc.valid = true
			return c.hand, nil
		case desc.refbit:
			desc.refbit = false
		case desc.pinCnt == 0:
			if err := c.evict(c.hand); err != nil {
				return -1, err
			}
			desc.valid = true
			return c.hand, nil
		default:
			numPinned++
		}

		if step%n == 0 {
			if numPinned == n {
				break
			}
			numPinned = 0
		}
	}

	return -1, util.ErrPoolExhausted
}

func (c *ClockReplacer) Touch(int) {}

func (c *ClockReplacer) Remove(int) {}
