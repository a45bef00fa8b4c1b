package latency

import "testing"

func TestSampleFutureTimestampClampsToZero(t *testing.T) {
	e := NewEstimator()
	lat, depth := e.Sample(1000, 1500)
	if lat != 0 {
		t.Fatalf("expected latency 0 for a future timestamp, got %v", lat)
	}
	if depth != minBufferDepthMs {
		t.Fatalf("expected floor buffer depth %d, got %d", minBufferDepthMs, depth)
	}
}

func TestSampleSingleValueP95(t *testing.T) {
	e := NewEstimator()
	lat, depth := e.Sample(1040, 1000)
	if lat != 40 {
		t.Fatalf("expected latency 40, got %v", lat)
	}
	want := clamp(40+bufferHeadroomMs, minBufferDepthMs, maxBufferDepthMs)
	if depth != want {
		t.Fatalf("expected depth %d, got %d", want, depth)
	}
}

func TestBufferDepthClampsToFloorAndCeiling(t *testing.T) {
	e := NewEstimator()
	e.Sample(1000, 1000) // latency 0 -> depth floors at 10
	if got := e.BufferDepthMs(); got != minBufferDepthMs {
		t.Fatalf("expected floor %d, got %d", minBufferDepthMs, got)
	}

	e2 := NewEstimator()
	e2.Sample(10000, 1000) // latency 9000ms -> depth ceilings at 300
	if got := e2.BufferDepthMs(); got != maxBufferDepthMs {
		t.Fatalf("expected ceiling %d, got %d", maxBufferDepthMs, got)
	}
}

func TestWindowBoundedAtMaxWindow(t *testing.T) {
	e := NewEstimator()
	for i := 0; i < MaxWindow+50; i++ {
		e.Sample(int64(1000+i), 1000)
	}
	if got := len(e.Samples()); got != MaxWindow {
		t.Fatalf("expected window capped at %d, got %d", MaxWindow, got)
	}
}

func TestMeanOfEmptyWindowIsZero(t *testing.T) {
	e := NewEstimator()
	if got := e.Mean(); got != 0 {
		t.Fatalf("expected 0 mean for empty window, got %v", got)
	}
}
