package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/pkg"
)

// Transport is a software circular output transfer. A ticker plays one
// segment per tick at the configured rate, skewed by ClockPPM to model an
// output oscillator that differs from the host's clock.
//
// In manual mode no goroutine is started and [Transport.Step] plays the next
// segment synchronously.
type Transport struct {
	clockPPM float64
	manual   bool
	sink     func(segment []byte)

	mutex     sync.Mutex
	rate      uint32
	frameSize int
	buf       []byte
	onSegment hal.SegmentHandler
	next      hal.Segment
	running   bool
	played    uint64

	stop chan struct{}
	done chan struct{}
}

var _ hal.Transport = (*Transport)(nil)

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithClockPPM skews the playback clock by ppm parts per million. Positive
// values drain the buffer faster than nominal.
func WithClockPPM(ppm float64) TransportOption {
	return func(t *Transport) { t.clockPPM = ppm }
}

// WithManualClock disables the ticker; segments advance only on Step.
func WithManualClock() TransportOption {
	return func(t *Transport) { t.manual = true }
}

// WithSink passes every played segment to fn before its completion event.
// fn runs on the output flow and must copy what it keeps.
func WithSink(fn func(segment []byte)) TransportOption {
	return func(t *Transport) { t.sink = fn }
}

// NewTransport creates a stopped transport.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Configure sets the playback rate and frame layout.
func (t *Transport) Configure(rate uint32, channels, subslotBytes uint8) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.running {
		return pkg.ErrAlreadyRunning
	}
	if rate == 0 || channels == 0 || subslotBytes == 0 {
		return fmt.Errorf("%w: rate %d channels %d subslot %d",
			pkg.ErrInvalidParameter, rate, channels, subslotBytes)
	}
	t.rate = rate
	t.frameSize = int(channels) * int(subslotBytes)
	return nil
}

// StartCircular begins playing buf, two equal segments, in a loop.
func (t *Transport) StartCircular(buf []byte, onSegment hal.SegmentHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.running {
		return pkg.ErrAlreadyRunning
	}
	if t.rate == 0 {
		return fmt.Errorf("%w: transport not configured", pkg.ErrInvalidState)
	}
	if len(buf) < 2*t.frameSize || len(buf)%2 != 0 {
		return fmt.Errorf("%w: circular buffer of %d bytes", pkg.ErrInvalidParameter, len(buf))
	}

	t.buf = buf
	t.onSegment = onSegment
	t.next = hal.SegmentHalf
	t.running = true

	if !t.manual {
		t.stop = make(chan struct{})
		t.done = make(chan struct{})
		go t.run(t.segmentPeriodLocked(), t.stop, t.done)
	}

	pkg.LogDebug(pkg.ComponentHAL, "sim transport started",
		"rate", t.rate,
		"bytes", len(buf),
		"ppm", t.clockPPM)
	return nil
}

// Stop halts playback. No segment event is delivered after Stop returns.
func (t *Transport) Stop() error {
	t.mutex.Lock()
	if !t.running {
		t.mutex.Unlock()
		return nil
	}
	t.running = false
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mutex.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

// Step plays the next segment and delivers its completion event. It reports
// false when the transport is stopped.
func (t *Transport) Step() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.stepLocked()
}

func (t *Transport) stepLocked() bool {
	if !t.running {
		return false
	}
	seg := t.next
	half := len(t.buf) / 2
	if t.sink != nil {
		idx := seg.Index()
		t.sink(t.buf[idx*half : (idx+1)*half])
	}
	if seg == hal.SegmentHalf {
		t.next = hal.SegmentFull
	} else {
		t.next = hal.SegmentHalf
	}
	t.played++
	if t.onSegment != nil {
		t.onSegment(seg)
	}
	return true
}

// SegmentPeriod returns the wall time one segment takes to play at the
// skewed clock.
func (t *Transport) SegmentPeriod() time.Duration {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.segmentPeriodLocked()
}

func (t *Transport) segmentPeriodLocked() time.Duration {
	if t.rate == 0 || t.frameSize == 0 || len(t.buf) == 0 {
		return 0
	}
	frames := float64(len(t.buf)/2) / float64(t.frameSize)
	rate := float64(t.rate) * (1 + t.clockPPM/1e6)
	return time.Duration(math.Round(frames / rate * float64(time.Second)))
}

// Played returns the number of segments played since creation.
func (t *Transport) Played() uint64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.played
}

// Running reports whether playback is active.
func (t *Transport) Running() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.running
}

func (t *Transport) run(period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mutex.Lock()
			ok := t.stepLocked()
			t.mutex.Unlock()
			if !ok {
				return
			}
		}
	}
}
