// Package capture provides the platform-independent Source boundary:
// window enumeration, frame capture with a bounded jitter-absorbing
// ring buffer, and the backend variant selected once at construction.
//
// No real OS compositing library exists anywhere in the corpus this
// module was grounded on (window capture is inherently a cgo/syscall
// boundary per platform, not something a pure-Go third-party dependency
// covers). Every backend is therefore the same genericSource with a
// different capability profile, producing frames from the synthetic
// default FrameProvider; swapping in a real X11/Wayland/Win32
// compositor means supplying a FrameProvider through SetFrameProvider,
// not changing the Source interface.
package capture

import (
	"context"
	"fmt"

	"github.com/pokertool/core/internal/model"
)

// Backend selects which platform compositor a Source talks to.
// Selection happens once at construction; there is no runtime switch.
type Backend string

const (
	BackendAuto    Backend = "auto"
	BackendX11     Backend = "x11"
	BackendWayland Backend = "wayland"
	BackendWin32   Backend = "win32"
	BackendQuartz  Backend = "quartz" // generic-bitblt fallback
)

// Source captures frames for a named window, without requiring it to
// be focused. Implementations must be safe for concurrent Capture
// calls from a single caller goroutine; EnumerateWindows may be called
// concurrently with Capture.
type Source interface {
	EnumerateWindows(ctx context.Context) ([]model.WindowHandle, error)
	Capture(ctx context.Context, handle model.WindowHandle, roi *model.ROI) (model.Frame, error)
	Capabilities() model.Capabilities
	Close() error
}

// New builds a Source for backend. BackendAuto resolves to BackendQuartz,
// the generic fallback, since no platform-detection dependency is
// available in this environment.
func New(backend Backend) (Source, error) {
	switch backend {
	case BackendAuto, BackendQuartz:
		return newGenericSource(BackendQuartz, model.Capabilities{
			CrossDesktop: false, MultiMonitor: true, HiddenWindow: false, MaxFPS: 30,
		}), nil
	case BackendX11:
		return newGenericSource(BackendX11, model.Capabilities{
			CrossDesktop: true, MultiMonitor: true, HiddenWindow: true, MaxFPS: 60,
		}), nil
	case BackendWayland:
		return newGenericSource(BackendWayland, model.Capabilities{
			CrossDesktop: false, MultiMonitor: true, HiddenWindow: false, MaxFPS: 60,
		}), nil
	case BackendWin32:
		return newGenericSource(BackendWin32, model.Capabilities{
			CrossDesktop: true, MultiMonitor: true, HiddenWindow: true, MaxFPS: 60,
		}), nil
	default:
		return nil, fmt.Errorf("capture: unknown backend %q", backend)
	}
}
