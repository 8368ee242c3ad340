package model

// WindowHandle identifies one capturable window as enumerated by a
// capture backend.
type WindowHandle struct {
	ID      string
	Title   string
	Bounds  ROI
	Visible bool
	Z       int
	PID     int
}

// Frame is one captured image with its acquisition metadata.
type Frame struct {
	Pixels     []byte
	Width      int
	Height     int
	TMonoNS    int64
	TWallMS    int64
	SourceMeta string
}

// Capabilities describes what a capture backend can do.
type Capabilities struct {
	CrossDesktop  bool
	MultiMonitor  bool
	HiddenWindow  bool
	MaxFPS        int
}
