package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/pkg"
	"github.com/ardnew/softdac/pkg/ring"
)

// SupportedRates lists the sample rates the output path accepts, highest
// first.
var SupportedRates = [...]uint32{96000, 48000, 44100, 32000, 22050, 16000, 11025, 8000}

// MaxRate is the highest supported sample rate.
const MaxRate = 96000

// DefaultSegmentMs is the default duration of one buffer half.
const DefaultSegmentMs = 4

// IsSupportedRate reports whether rate is one of [SupportedRates].
func IsSupportedRate(rate uint32) bool {
	for _, r := range SupportedRates {
		if r == rate {
			return true
		}
	}
	return false
}

// SegmentSamples returns the number of samples (frames times channels) in
// one segment of segmentMs milliseconds. The frame count is rounded to the
// nearest whole frame so channels stay interleaved.
func SegmentSamples(rate uint32, channels uint8, segmentMs uint32) int {
	frames := (uint64(rate)*uint64(segmentMs) + 500) / 1000
	return int(frames) * int(channels)
}

// SchedulerConfig describes the output format.
type SchedulerConfig struct {
	SegmentMs    uint32 // Duration of one segment
	Channels     uint8  // Interleaved channels
	SubslotBytes uint8  // Bytes per sample as carried on the wire
}

// SegmentState reports the double-buffer position.
type SegmentState struct {
	Playing  int  // Segment the transport is playing
	Refilled int  // Segment most recently refilled
	Starved  bool // Last refill found too little data
}

// Scheduler drives a circular transport over a two-segment buffer,
// refilling each half from the ring as the transport finishes with it.
//
// Start, Stop and SetSampleRate are called from the control side.
// OnSegmentComplete runs on the transport's output flow and is the ring's
// only consumer.
type Scheduler struct {
	transport hal.Transport
	ring      *ring.Buffer
	cfg       SchedulerConfig

	mutex    sync.Mutex // serializes Start, Stop and SetSampleRate
	buf      []byte     // both segments, sized for MaxRate
	segBytes int
	rate     uint32

	running  atomic.Bool
	playing  atomic.Int32
	refilled atomic.Int32
	starved  atomic.Bool

	zeroFills atomic.Uint64
	refills   atomic.Uint64
}

// NewScheduler creates a stopped scheduler. Call SetSampleRate before Start.
func NewScheduler(transport hal.Transport, rb *ring.Buffer, cfg SchedulerConfig) (*Scheduler, error) {
	if transport == nil || rb == nil {
		return nil, fmt.Errorf("%w: scheduler needs a transport and a ring", pkg.ErrInvalidParameter)
	}
	if cfg.SegmentMs == 0 {
		cfg.SegmentMs = DefaultSegmentMs
	}
	if cfg.Channels == 0 || cfg.SubslotBytes == 0 {
		return nil, fmt.Errorf("%w: %d channels of %d bytes",
			pkg.ErrInvalidParameter, cfg.Channels, cfg.SubslotBytes)
	}

	maxSeg := SegmentSamples(MaxRate, cfg.Channels, cfg.SegmentMs) * int(cfg.SubslotBytes)
	return &Scheduler{
		transport: transport,
		ring:      rb,
		cfg:       cfg,
		buf:       make([]byte, 2*maxSeg),
	}, nil
}

// SetSampleRate reconfigures the output for rate. A running output is
// stopped, the ring is emptied, the transport reconfigured and the segment
// length recomputed before output restarts.
func (s *Scheduler) SetSampleRate(rate uint32) error {
	if !IsSupportedRate(rate) {
		return fmt.Errorf("%w: sample rate %d", pkg.ErrNotSupported, rate)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	wasRunning := s.running.Load()
	if err := s.stopLocked(); err != nil {
		return err
	}
	s.ring.Reset()

	if err := s.transport.Configure(rate, s.cfg.Channels, s.cfg.SubslotBytes); err != nil {
		return fmt.Errorf("configure transport for %d Hz: %w", rate, err)
	}
	s.rate = rate
	s.segBytes = SegmentSamples(rate, s.cfg.Channels, s.cfg.SegmentMs) * int(s.cfg.SubslotBytes)

	pkg.LogInfo(pkg.ComponentOutput, "output reconfigured",
		"rate", rate,
		"segmentBytes", s.segBytes)

	if wasRunning {
		return s.startLocked()
	}
	return nil
}

// Start zeroes both segments and begins the circular transfer. Starting a
// running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.startLocked()
}

func (s *Scheduler) startLocked() error {
	if s.running.Load() {
		return nil
	}
	if s.segBytes == 0 {
		return fmt.Errorf("%w: no sample rate configured", pkg.ErrInvalidState)
	}

	active := s.buf[:2*s.segBytes]
	clear(active)
	s.playing.Store(0)
	s.refilled.Store(1)
	s.starved.Store(false)

	s.running.Store(true)
	if err := s.transport.StartCircular(active, s.OnSegmentComplete); err != nil {
		s.running.Store(false)
		return fmt.Errorf("start circular transfer: %w", err)
	}

	pkg.LogDebug(pkg.ComponentOutput, "output started", "rate", s.rate)
	return nil
}

// Stop halts the transfer. It is safe to call in any state; the transport
// is only stopped when running.
func (s *Scheduler) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stopLocked()
}

func (s *Scheduler) stopLocked() error {
	if !s.running.Swap(false) {
		return nil
	}
	if err := s.transport.Stop(); err != nil {
		return fmt.Errorf("stop transfer: %w", err)
	}
	pkg.LogDebug(pkg.ComponentOutput, "output stopped")
	return nil
}

// OnSegmentComplete refills the segment the transport just finished:
// [hal.SegmentHalf] frees segment 0, [hal.SegmentFull] frees segment 1.
// When the ring holds less than a segment the segment is zero-filled and
// the starvation flag raised. Events are ignored while stopped.
func (s *Scheduler) OnSegmentComplete(seg hal.Segment) {
	if !s.running.Load() {
		return
	}

	idx := seg.Index()
	dst := s.buf[idx*s.segBytes : (idx+1)*s.segBytes]

	if err := s.ring.Read(dst); err != nil {
		clear(dst)
		s.starved.Store(true)
		s.zeroFills.Add(1)
	} else {
		s.starved.Store(false)
		s.refills.Add(1)
	}

	s.refilled.Store(int32(idx))
	s.playing.Store(int32(1 - idx))
}

// State returns a snapshot of the segment position.
func (s *Scheduler) State() SegmentState {
	return SegmentState{
		Playing:  int(s.playing.Load()),
		Refilled: int(s.refilled.Load()),
		Starved:  s.starved.Load(),
	}
}

// Running reports whether the circular transfer is active.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Rate returns the configured sample rate, zero before SetSampleRate.
func (s *Scheduler) Rate() uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rate
}

// SegmentBytes returns the length of one segment in bytes.
func (s *Scheduler) SegmentBytes() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.segBytes
}

// ZeroFills returns the number of segments replaced with silence.
func (s *Scheduler) ZeroFills() uint64 { return s.zeroFills.Load() }

// Refills returns the number of segments filled from the ring.
func (s *Scheduler) Refills() uint64 { return s.refills.Load() }

// Ring returns the buffer the scheduler consumes.
func (s *Scheduler) Ring() *ring.Buffer { return s.ring }
