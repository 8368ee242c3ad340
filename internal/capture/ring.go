package capture

import "github.com/pokertool/core/internal/model"

// ringSize is the number of most-recent frames retained per window to
// absorb capture jitter (spec: N=3).
const ringSize = 3

// frameRing is a bounded FIFO of the most recently captured frames for
// one window. It is not safe for concurrent use; callers hold the
// owning Source's lock.
type frameRing struct {
	frames []model.Frame
}

func newFrameRing() *frameRing {
	return &frameRing{frames: make([]model.Frame, 0, ringSize)}
}

// push appends f, evicting the oldest frame once the ring is full.
func (r *frameRing) push(f model.Frame) {
	if len(r.frames) == ringSize {
		copy(r.frames, r.frames[1:])
		r.frames = r.frames[:ringSize-1]
	}
	r.frames = append(r.frames, f)
}

// latest returns the most recently pushed frame, if any.
func (r *frameRing) latest() (model.Frame, bool) {
	if len(r.frames) == 0 {
		return model.Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// len reports how many frames are currently retained.
func (r *frameRing) len() int {
	return len(r.frames)
}
