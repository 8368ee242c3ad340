package capture

import (
	"context"
	"sync"

	"github.com/coder/quartz"
	"github.com/pokertool/core/internal/model"
)

// FrameProvider produces raw pixel data for a capture attempt. The
// default synthetic provider is deterministic and OS-independent;
// a platform backend would replace it with a real compositor call.
type FrameProvider func(handle model.WindowHandle, roi *model.ROI) (pixels []byte, width, height int, err error)

// genericSource is the shared Source implementation behind every
// Backend variant; only the Capabilities profile and FrameProvider
// differ between them.
type genericSource struct {
	backend  Backend
	caps     model.Capabilities
	clock    quartz.Clock
	provider FrameProvider

	mu        sync.Mutex
	windows   map[string]model.WindowHandle
	minimised map[string]bool
	occluded  map[string]bool
	denied    map[string]bool
	rings     map[string]*frameRing
	closed    bool
}

func newGenericSource(backend Backend, caps model.Capabilities) *genericSource {
	return &genericSource{
		backend:   backend,
		caps:      caps,
		clock:     quartz.NewReal(),
		provider:  syntheticFrameProvider,
		windows:   make(map[string]model.WindowHandle),
		minimised: make(map[string]bool),
		occluded:  make(map[string]bool),
		denied:    make(map[string]bool),
		rings:     make(map[string]*frameRing),
	}
}

// RegisterWindow makes handle visible to EnumerateWindows and
// Capture-able. Test and demo harnesses use this in place of a real
// window manager query.
func (s *genericSource) RegisterWindow(h model.WindowHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[h.ID] = h
}

// SetMinimised marks handle.ID as minimised (or not).
func (s *genericSource) SetMinimised(id string, minimised bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minimised[id] = minimised
}

// SetOccluded marks handle.ID as occluded (or not).
func (s *genericSource) SetOccluded(id string, occluded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occluded[id] = occluded
}

// SetPermissionDenied marks handle.ID as inaccessible (or not).
func (s *genericSource) SetPermissionDenied(id string, denied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied[id] = denied
}

// SetFrameProvider overrides the synthetic default, mainly for tests
// that want to assert on specific pixel content.
func (s *genericSource) SetFrameProvider(p FrameProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = p
}

// SetClock overrides the real clock, for deterministic tests.
func (s *genericSource) SetClock(c quartz.Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
}

func (s *genericSource) EnumerateWindows(ctx context.Context) ([]model.WindowHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.WindowHandle, 0, len(s.windows))
	for _, h := range s.windows {
		out = append(out, h)
	}
	return out, nil
}

func (s *genericSource) Capture(ctx context.Context, handle model.WindowHandle, roi *model.ROI) (model.Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Frame{}, &model.CaptureError{Reason: model.CaptureBackend}
	}
	if _, ok := s.windows[handle.ID]; !ok {
		s.mu.Unlock()
		return model.Frame{}, &model.CaptureError{Reason: model.CaptureNotFound}
	}
	if s.denied[handle.ID] {
		s.mu.Unlock()
		return model.Frame{}, &model.CaptureError{Reason: model.CapturePermissionDenied}
	}
	if s.minimised[handle.ID] && !s.caps.HiddenWindow {
		s.mu.Unlock()
		return model.Frame{}, &model.CaptureError{Reason: model.CaptureMinimised}
	}
	if s.occluded[handle.ID] {
		s.mu.Unlock()
		return model.Frame{}, &model.CaptureError{Reason: model.CaptureOccluded}
	}
	provider := s.provider
	clock := s.clock
	s.mu.Unlock()

	pixels, w, h, err := provider(handle, roi)
	if err != nil {
		return model.Frame{}, &model.CaptureError{Reason: model.CaptureBackend, Err: err}
	}

	now := clock.Now()
	frame := model.Frame{
		Pixels:     pixels,
		Width:      w,
		Height:     h,
		TMonoNS:    now.UnixNano(),
		TWallMS:    now.UnixMilli(),
		SourceMeta: string(s.backend),
	}

	s.mu.Lock()
	r, ok := s.rings[handle.ID]
	if !ok {
		r = newFrameRing()
		s.rings[handle.ID] = r
	}
	r.push(frame)
	s.mu.Unlock()

	return frame, nil
}

func (s *genericSource) Capabilities() model.Capabilities {
	return s.caps
}

func (s *genericSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// syntheticFrameProvider deterministically fills an RGBA buffer sized
// to roi (or a default 1280x720 window) with a flat value derived from
// the handle id, so tests can assert on frame identity without any
// real compositor.
func syntheticFrameProvider(handle model.WindowHandle, roi *model.ROI) ([]byte, int, int, error) {
	w, h := 1280, 720
	if roi != nil && roi.W > 0 && roi.H > 0 {
		w, h = roi.W, roi.H
	} else if handle.Bounds.W > 0 && handle.Bounds.H > 0 {
		w, h = handle.Bounds.W, handle.Bounds.H
	}
	fill := byte(0)
	for _, r := range handle.ID {
		fill += byte(r)
	}
	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = fill
	}
	return pixels, w, h, nil
}
