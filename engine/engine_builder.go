package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-rgtc/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets the window whose message loop Run drives.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer whose frames the engine begins, ends and presents.
//
// Parameters:
//   - r: the renderer, usually a renderer.Renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r FrameRenderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithSession sets the session that records each frame's compute and draw work.
//
// Parameters:
//   - s: the session, usually a session.Session
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSession(s FrameSession) EngineBuilderOption {
	return func(e *engine) {
		e.session = s
	}
}

// WithFrameDelay sets the minimum duration of a frame. The default is one millisecond.
// Pass 0 to uncap the render loop.
//
// Parameters:
//   - d: the minimum frame duration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameDelay(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		if d < 0 {
			d = 0
		}
		e.frameDelay = d
	}
}

// WithRenderCallback registers a function called on the render goroutine after every frame.
// GPU readbacks are safe inside it since no frame is open.
//
// Parameters:
//   - callback: receives the number of frames presented so far
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderCallback(callback func(frame uint64)) EngineBuilderOption {
	return func(e *engine) {
		e.renderCallback = callback
	}
}
