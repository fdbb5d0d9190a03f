package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

// Window defines the platform-independent window API the engine drives.
type Window interface {
	// SetUpdateCallback registers a function called on every message loop iteration.
	//
	// Parameters:
	//   - callback: the function to call each iteration
	SetUpdateCallback(callback func())

	// SetResizeCallback registers a function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: receives the new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyCallback registers a function called for every key transition except Escape,
	// which closes the window.
	//
	// Parameters:
	//   - callback: receives the virtual key code and the action
	SetKeyCallback(callback func(key uint32, action common.KeyAction))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor for the window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor, or nil before the window exists
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	//
	// Returns:
	//   - bool: true while the window is open
	IsRunning() bool

	// Close destroys the window and terminates the platform library.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error

	// RequestClose asks the message loop to exit on its next iteration. Safe from any goroutine.
	RequestClose()

	// ProcessMessages runs the message loop on the calling (main) thread until the window closes.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// width is the current window client area width in pixels.
	width int

	// height is the current window client area height in pixels.
	height int

	// resizable allows the user to resize the window.
	resizable bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onResize is called when the window is resized.
	onResize func(width, height int)

	// onKey is called for key presses, repeats and releases.
	onKey func(key uint32, action common.KeyAction)

	// closeRequested is closed by RequestClose.
	closeRequested chan struct{}
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
// Defaults: 512x512, not resizable, titled "Oxy - RGTC Compressor".
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
//   - error: error if the platform window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:          "Oxy - RGTC Compressor",
		width:          512,
		height:         512,
		closeRequested: make(chan struct{}, 1),
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key uint32, action common.KeyAction)) {
	w.onKey = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) RequestClose() {
	select {
	case w.closeRequested <- struct{}{}:
	default:
	}
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		select {
		case <-w.closeRequested:
			platformRequestClose(w)
			return
		default:
		}

		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
