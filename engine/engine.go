package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/window"
)

// ErrMissingComponent is returned by Run when the engine has no window, renderer or session.
var ErrMissingComponent = errors.New("engine is missing a window, renderer or session")

// FrameRenderer is the part of the renderer the engine drives each frame.
type FrameRenderer interface {
	BeginComputeFrame() error
	EndComputeFrame() error
	BeginFrame() error
	EndFrame() error
	Present()
	Resize(width, height int)
}

// FrameSession records the work of a single frame and consumes key input.
type FrameSession interface {
	PrepareCompute() error
	DrawCalls() error
	OnKey(key uint32, action common.KeyAction)
}

// engine implements the Engine interface.
// Coordinates the render goroutine and the window's message loop.
type engine struct {
	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	keys chan common.KeyEvent

	window   window.Window
	renderer FrameRenderer
	session  FrameSession

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameDelay     time.Duration
	frames         atomic.Uint64
	renderCallback func(frame uint64)
}

// Engine runs the compress-and-display loop until the window closes.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Frames returns the number of frames presented so far.
	Frames() uint64

	// Run starts the render goroutine and processes window messages on the calling goroutine.
	// It blocks until the window closes. Call it from the main thread.
	//
	// Returns:
	//   - error: ErrMissingComponent if the engine was built without a window, renderer or session
	Run() error

	// Quit signals the render goroutine to stop and asks the window to close.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine with the provided options.
// Key presses delivered by the window are queued and handled on the render goroutine.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel: make(chan struct{}),
		keys:        make(chan common.KeyEvent, 64),
		profiler:    profiler.NewProfiler(),
		frameDelay:  time.Millisecond,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetKeyCallback(e.queueKey)
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

func (e *engine) Run() error {
	if e.window == nil || e.renderer == nil || e.session == nil {
		return ErrMissingComponent
	}

	e.wg.Add(1)
	go e.handleRender()

	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	return nil
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel once and asks the window to close.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
		if e.window != nil {
			e.window.RequestClose()
		}
	})
}

// queueKey runs on the window thread. Events are dropped when the render goroutine falls behind.
func (e *engine) queueKey(key uint32, action common.KeyAction) {
	select {
	case e.keys <- common.KeyEvent{Key: key, Action: action}:
	default:
		common.Logger().Debug("key event dropped", "key", key, "action", action.String())
	}
}

// drainKeys hands every queued key event to the session.
func (e *engine) drainKeys() {
	for {
		select {
		case ev := <-e.keys:
			e.session.OnKey(ev.Key, ev.Action)
		default:
			return
		}
	}
}

// handleRender runs the render loop in its own goroutine until the quit channel closes.
// Recovers from panics so the window can shut down cleanly.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", fmt.Sprint(r))
			e.signalQuit()
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		start := time.Now()
		e.drainKeys()
		if err := e.renderFrame(); err != nil {
			common.Logger().Error("frame failed", "error", err)
			e.signalQuit()
			return
		}

		if e.renderCallback != nil {
			e.renderCallback(e.frames.Load())
		}

		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Tick()
		}

		if e.frameDelay > 0 {
			if remaining := e.frameDelay - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame runs one frame: the compute submission first, then the render pass and present.
// A frame whose compute phase fails is skipped without presenting.
func (e *engine) renderFrame() error {
	if err := e.renderer.BeginComputeFrame(); err != nil {
		return fmt.Errorf("begin compute frame: %w", err)
	}
	computeErr := e.session.PrepareCompute()
	if err := e.renderer.EndComputeFrame(); err != nil && computeErr == nil {
		computeErr = err
	}
	if computeErr != nil {
		return fmt.Errorf("compute: %w", computeErr)
	}

	if err := e.renderer.BeginFrame(); err != nil {
		// Surface not ready, e.g. while minimized.
		common.Logger().Debug("frame skipped", "error", err)
		return nil
	}
	drawErr := e.session.DrawCalls()
	if err := e.renderer.EndFrame(); err != nil && drawErr == nil {
		drawErr = err
	}
	if drawErr != nil {
		return fmt.Errorf("draw: %w", drawErr)
	}
	e.renderer.Present()
	e.frames.Add(1)
	return nil
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}
