package buffer

import (
	"fmt"

	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

// Replacer defines the contract for page replacement policies.
type Replacer interface {
	// Victim returns a frame ready to be populated, evicting through the
	// pool's evict callback if needed. The returned frame is marked valid
	// but holds no page yet. Fails with util.ErrPoolExhausted when every
	// frame is pinned.
	Victim() (int, error)
	// Touch records an access to a valid frame.
	Touch(frameNo int)
	// Remove tells the policy that frameNo was invalidated outside Victim.
	Remove(frameNo int)
	Name() string
}

// evictFunc writes the frame back if dirty, drops its index entry and
// clears the descriptor. On error the frame is left as it was.
type evictFunc func(frameNo int) error

func newReplacer(policy string, frames *frameTable, evict evictFunc) (Replacer, error) {
	switch policy {
	case util.ReplacerClock, "":
		return newClockReplacer(frames, evict), nil
	case util.ReplacerLRU:
		return newLRUReplacer(frames, evict), nil
	default:
		return nil, fmt.Errorf("replacer %q: %w", policy, util.ErrUnknownReplacer)
	}
}
