package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/pkg"
)

func TestTransport_ManualStep(t *testing.T) {
	var events []hal.Segment
	var sunk [][]byte

	tr := NewTransport(WithManualClock(), WithSink(func(seg []byte) {
		sunk = append(sunk, append([]byte(nil), seg...))
	}))
	if err := tr.Configure(48000, 2, 3); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	buf := make([]byte, 24)
	for i := range buf {
		buf[i] = byte(i)
	}
	if err := tr.StartCircular(buf, func(seg hal.Segment) { events = append(events, seg) }); err != nil {
		t.Fatalf("StartCircular() error = %v", err)
	}

	for range 3 {
		if !tr.Step() {
			t.Fatal("Step() = false while running")
		}
	}

	want := []hal.Segment{hal.SegmentHalf, hal.SegmentFull, hal.SegmentHalf}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %v, want %v", i, events[i], want[i])
		}
	}
	if sunk[0][0] != 0 || sunk[1][0] != 12 {
		t.Errorf("sink segments start at %d and %d, want 0 and 12", sunk[0][0], sunk[1][0])
	}
	if got := tr.Played(); got != 3 {
		t.Errorf("Played() = %d, want 3", got)
	}

	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if tr.Step() {
		t.Error("Step() = true after Stop")
	}
	if err := tr.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestTransport_Errors(t *testing.T) {
	tr := NewTransport(WithManualClock())

	if err := tr.StartCircular(make([]byte, 12), nil); !errors.Is(err, pkg.ErrInvalidState) {
		t.Errorf("StartCircular() unconfigured error = %v, want %v", err, pkg.ErrInvalidState)
	}
	if err := tr.Configure(0, 2, 3); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Configure(0) error = %v, want %v", err, pkg.ErrInvalidParameter)
	}
	if err := tr.Configure(48000, 2, 3); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := tr.StartCircular(make([]byte, 6), nil); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("StartCircular(short) error = %v, want %v", err, pkg.ErrInvalidParameter)
	}
	if err := tr.StartCircular(make([]byte, 12), nil); err != nil {
		t.Fatalf("StartCircular() error = %v", err)
	}
	if err := tr.StartCircular(make([]byte, 12), nil); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second StartCircular() error = %v, want %v", err, pkg.ErrAlreadyRunning)
	}
	if err := tr.Configure(44100, 2, 3); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("Configure() while running error = %v, want %v", err, pkg.ErrAlreadyRunning)
	}
}

func TestTransport_SegmentPeriod(t *testing.T) {
	tests := []struct {
		name string
		ppm  float64
		want time.Duration
	}{
		{"nominal", 0, 4 * time.Millisecond},
		{"fast", 1e6, 2 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransport(WithManualClock(), WithClockPPM(tt.ppm))
			_ = tr.Configure(48000, 2, 3)
			_ = tr.StartCircular(make([]byte, 2*192*6), nil)

			if got := tr.SegmentPeriod(); got != tt.want {
				t.Errorf("SegmentPeriod() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransport_Ticker(t *testing.T) {
	done := make(chan struct{}, 64)
	tr := NewTransport()
	_ = tr.Configure(48000, 2, 2)

	err := tr.StartCircular(make([]byte, 2*48*4), func(hal.Segment) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("StartCircular() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("no segment event within 1s")
	}

	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	played := tr.Played()
	time.Sleep(5 * time.Millisecond)
	if got := tr.Played(); got != played {
		t.Errorf("Played() advanced after Stop: %d -> %d", played, got)
	}
	if tr.Running() {
		t.Error("Running() = true after Stop")
	}
}
