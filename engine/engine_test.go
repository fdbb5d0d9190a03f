package engine

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

type fakeWindow struct {
	onKey    func(key uint32, action common.KeyAction)
	onResize func(width, height int)
	closed   chan struct{}
	once     sync.Once
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{closed: make(chan struct{})}
}

func (w *fakeWindow) SetUpdateCallback(func())                     {}
func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *fakeWindow) SetKeyCallback(cb func(uint32, common.KeyAction)) {
	w.onKey = cb
}
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool {
	select {
	case <-w.closed:
		return false
	default:
		return true
	}
}
func (w *fakeWindow) Close() error     { return nil }
func (w *fakeWindow) RequestClose()    { w.once.Do(func() { close(w.closed) }) }
func (w *fakeWindow) ProcessMessages() { <-w.closed }
func (w *fakeWindow) Width() int       { return 512 }
func (w *fakeWindow) Height() int      { return 512 }

type fakeRenderer struct {
	mu       sync.Mutex
	calls    []string
	beginErr error
	resized  [2]int
}

func (r *fakeRenderer) record(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *fakeRenderer) BeginComputeFrame() error { r.record("begin-compute"); return nil }
func (r *fakeRenderer) EndComputeFrame() error   { r.record("end-compute"); return nil }
func (r *fakeRenderer) BeginFrame() error {
	if r.beginErr != nil {
		return r.beginErr
	}
	r.record("begin")
	return nil
}
func (r *fakeRenderer) EndFrame() error          { r.record("end"); return nil }
func (r *fakeRenderer) Present()                 { r.record("present") }
func (r *fakeRenderer) Resize(width, height int) { r.resized = [2]int{width, height} }

func (r *fakeRenderer) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

type fakeSession struct {
	r          *fakeRenderer
	computeErr error
	keys       []common.KeyEvent
	onDraw     func(n int)
	draws      int
}

func (s *fakeSession) PrepareCompute() error {
	s.r.record("compute")
	return s.computeErr
}

func (s *fakeSession) DrawCalls() error {
	s.r.record("draw")
	s.draws++
	if s.onDraw != nil {
		s.onDraw(s.draws)
	}
	return nil
}

func (s *fakeSession) OnKey(key uint32, action common.KeyAction) {
	s.keys = append(s.keys, common.KeyEvent{Key: key, Action: action})
}

func TestRenderFrameOrder(t *testing.T) {
	r := &fakeRenderer{}
	e := NewEngine(WithRenderer(r), WithSession(&fakeSession{r: r})).(*engine)

	if err := e.renderFrame(); err != nil {
		t.Fatalf("renderFrame: %v", err)
	}
	want := []string{"begin-compute", "compute", "end-compute", "begin", "draw", "end", "present"}
	if got := r.snapshot(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if e.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", e.Frames())
	}
}

func TestRenderFrameComputeFailure(t *testing.T) {
	r := &fakeRenderer{}
	boom := errors.New("dispatch failed")
	e := NewEngine(WithRenderer(r), WithSession(&fakeSession{r: r, computeErr: boom})).(*engine)

	if err := e.renderFrame(); !errors.Is(err, boom) {
		t.Fatalf("renderFrame() = %v, want the compute error", err)
	}
	want := []string{"begin-compute", "compute", "end-compute"}
	if got := r.snapshot(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestRenderFrameSkipsWhenSurfaceUnavailable(t *testing.T) {
	r := &fakeRenderer{beginErr: errors.New("surface lost")}
	e := NewEngine(WithRenderer(r), WithSession(&fakeSession{r: r})).(*engine)

	if err := e.renderFrame(); err != nil {
		t.Fatalf("renderFrame: %v", err)
	}
	if e.Frames() != 0 {
		t.Errorf("Frames() = %d after a skipped frame", e.Frames())
	}
}

func TestRunDeliversKeysAndStops(t *testing.T) {
	w := newFakeWindow()
	r := &fakeRenderer{}
	s := &fakeSession{r: r}
	var callbacks []uint64
	e := NewEngine(WithWindow(w), WithRenderer(r), WithSession(s), WithFrameDelay(0),
		WithRenderCallback(func(frame uint64) { callbacks = append(callbacks, frame) }))

	w.onKey(common.KeyM, common.KeyPress)
	w.onKey(common.KeyM, common.KeyRelease)
	s.onDraw = func(n int) {
		if n == 3 {
			e.Quit()
		}
	}

	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}

	if len(s.keys) != 2 || s.keys[0].Key != common.KeyM || s.keys[0].Action != common.KeyPress {
		t.Errorf("keys = %+v", s.keys)
	}
	if e.Frames() < 3 {
		t.Errorf("Frames() = %d, want at least 3", e.Frames())
	}
	if len(callbacks) < 3 || callbacks[0] != 1 || callbacks[2] != 3 {
		t.Errorf("render callback frames = %v", callbacks)
	}
	if w.IsRunning() {
		t.Error("window still running after Quit")
	}
}

func TestRunWithoutComponents(t *testing.T) {
	if err := NewEngine().Run(); !errors.Is(err, ErrMissingComponent) {
		t.Errorf("Run() = %v, want ErrMissingComponent", err)
	}
}

func TestResizeForwardsToRenderer(t *testing.T) {
	w := newFakeWindow()
	r := &fakeRenderer{}
	NewEngine(WithWindow(w), WithRenderer(r), WithSession(&fakeSession{r: r}))
	w.onResize(640, 480)
	if r.resized != [2]int{640, 480} {
		t.Errorf("resized = %v", r.resized)
	}
}

func TestFrameDelayOption(t *testing.T) {
	e := NewEngine(WithFrameDelay(-time.Second)).(*engine)
	if e.frameDelay != 0 {
		t.Errorf("negative delay = %v, want 0", e.frameDelay)
	}
	if NewEngine().(*engine).frameDelay != time.Millisecond {
		t.Error("default frame delay is not 1ms")
	}
}
