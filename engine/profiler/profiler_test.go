package profiler

import (
	"strings"
	"testing"
	"time"
)

func TestTickReportsOncePerInterval(t *testing.T) {
	base := time.Now()
	clock := base
	p := NewProfiler()
	p.lastTime = base
	p.now = func() time.Time { return clock }

	for i := range 59 {
		clock = base.Add(time.Duration(i) * 10 * time.Millisecond)
		if p.Tick() {
			t.Fatalf("tick %d reported before the interval elapsed", i)
		}
	}

	clock = base.Add(time.Second)
	if !p.Tick() {
		t.Fatal("tick after one second did not report")
	}
	if p.frameCount != 0 || !p.lastTime.Equal(clock) {
		t.Errorf("counters not reset: frames %d last %v", p.frameCount, p.lastTime)
	}
}

func TestStatsString(t *testing.T) {
	s := Stats{FPS: 59.5, HeapMB: 1.25}
	got := s.String()
	if !strings.HasPrefix(got, "[Profiler] FPS: 59.50") || !strings.Contains(got, "Heap: 1.25 MB") {
		t.Errorf("String() = %q", got)
	}
}

func TestSampleFPS(t *testing.T) {
	p := NewProfiler()
	p.frameCount = 120
	if s := p.sample(2 * time.Second); s.FPS != 60 {
		t.Errorf("FPS = %v, want 60", s.FPS)
	}
}
