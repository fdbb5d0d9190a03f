package window

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

func TestKeyAction(t *testing.T) {
	tests := []struct {
		in   glfw.Action
		want common.KeyAction
	}{
		{glfw.Press, common.KeyPress},
		{glfw.Repeat, common.KeyRepeat},
		{glfw.Release, common.KeyRelease},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := keyAction(tt.in); got != tt.want {
				t.Errorf("keyAction(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRequestCloseDoesNotBlock(t *testing.T) {
	w := &engineWindow{closeRequested: make(chan struct{}, 1)}
	w.RequestClose()
	w.RequestClose()
	if len(w.closeRequested) != 1 {
		t.Errorf("pending close requests = %d, want 1", len(w.closeRequested))
	}
	if w.IsRunning() {
		t.Error("a window without a platform window reports running")
	}
}

func TestWindowOptions(t *testing.T) {
	w := &engineWindow{}
	for _, opt := range []WindowBuilderOption{WithTitle("t"), WithSize(256, 128), WithResizable(true)} {
		opt(w)
	}
	if w.title != "t" || w.Width() != 256 || w.Height() != 128 || !w.resizable {
		t.Errorf("options not applied: %+v", w)
	}
}
