package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/pkg"
	"github.com/ardnew/softdac/pkg/ring"
)

// mockTransport records calls and lets tests fire segment events directly.
type mockTransport struct {
	configures []uint32
	starts     int
	stops      int
	buf        []byte
	handler    hal.SegmentHandler

	configureErr error
	startErr     error
	// snapshot of buf taken at StartCircular
	startBuf []byte
}

func (m *mockTransport) Configure(rate uint32, _, _ uint8) error {
	if m.configureErr != nil {
		return m.configureErr
	}
	m.configures = append(m.configures, rate)
	return nil
}

func (m *mockTransport) StartCircular(buf []byte, h hal.SegmentHandler) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.starts++
	m.buf = buf
	m.handler = h
	m.startBuf = append([]byte(nil), buf...)
	return nil
}

func (m *mockTransport) Stop() error {
	m.stops++
	return nil
}

func (m *mockTransport) fire(seg hal.Segment) { m.handler(seg) }

var stereo24 = SchedulerConfig{SegmentMs: 4, Channels: 2, SubslotBytes: 3}

func newTestScheduler(t *testing.T) (*Scheduler, *mockTransport, *ring.Buffer) {
	t.Helper()
	rb, err := ring.New(4800, 6)
	if err != nil {
		t.Fatalf("ring.New() error = %v", err)
	}
	mt := &mockTransport{}
	s, err := NewScheduler(mt, rb, stereo24)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	return s, mt, rb
}

func TestSegmentSamples(t *testing.T) {
	tests := []struct {
		rate     uint32
		channels uint8
		ms       uint32
		want     int
	}{
		{48000, 2, 4, 384},
		{96000, 2, 4, 768},
		{44100, 2, 4, 352},
		{22050, 2, 4, 176},
		{11025, 1, 4, 44},
		{8000, 2, 1, 16},
	}

	for _, tt := range tests {
		if got := SegmentSamples(tt.rate, tt.channels, tt.ms); got != tt.want {
			t.Errorf("SegmentSamples(%d, %d, %d) = %d, want %d",
				tt.rate, tt.channels, tt.ms, got, tt.want)
		}
	}
}

func TestIsSupportedRate(t *testing.T) {
	for _, r := range SupportedRates {
		if !IsSupportedRate(r) {
			t.Errorf("IsSupportedRate(%d) = false", r)
		}
	}
	for _, r := range []uint32{0, 12000, 192000, 47999} {
		if IsSupportedRate(r) {
			t.Errorf("IsSupportedRate(%d) = true", r)
		}
	}
}

func TestNewScheduler_Invalid(t *testing.T) {
	rb, _ := ring.New(16, 6)
	if _, err := NewScheduler(nil, rb, stereo24); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("NewScheduler(nil transport) error = %v", err)
	}
	if _, err := NewScheduler(&mockTransport{}, rb, SchedulerConfig{Channels: 2}); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("NewScheduler(no subslot) error = %v", err)
	}
}

func TestScheduler_StartRequiresRate(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	if err := s.Start(); !errors.Is(err, pkg.ErrInvalidState) {
		t.Errorf("Start() error = %v, want ErrInvalidState", err)
	}
}

func TestScheduler_SetSampleRate(t *testing.T) {
	s, mt, rb := newTestScheduler(t)

	if err := s.SetSampleRate(12345); !errors.Is(err, pkg.ErrNotSupported) {
		t.Errorf("SetSampleRate(12345) error = %v, want ErrNotSupported", err)
	}
	if len(mt.configures) != 0 {
		t.Error("unsupported rate reached the transport")
	}

	if err := s.SetSampleRate(48000); err != nil {
		t.Fatalf("SetSampleRate(48000) error = %v", err)
	}
	if s.Running() {
		t.Error("SetSampleRate started a stopped scheduler")
	}
	if got := s.SegmentBytes(); got != 384*3 {
		t.Errorf("SegmentBytes() = %d, want %d", got, 384*3)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_ = rb.Write(make([]byte, 600))

	if err := s.SetSampleRate(96000); err != nil {
		t.Fatalf("SetSampleRate(96000) error = %v", err)
	}
	if !s.Running() {
		t.Error("running scheduler not restarted after rate change")
	}
	if mt.stops != 1 || mt.starts != 2 {
		t.Errorf("stops/starts = %d/%d, want 1/2", mt.stops, mt.starts)
	}
	if rb.AvailableForRead() != 0 {
		t.Error("ring not reset by rate change")
	}
	if got := len(mt.buf); got != 2*768*3 {
		t.Errorf("circular buffer = %d bytes, want %d", got, 2*768*3)
	}
	if s.Rate() != 96000 {
		t.Errorf("Rate() = %d, want 96000", s.Rate())
	}
}

func TestScheduler_SetSampleRateTransportError(t *testing.T) {
	s, mt, _ := newTestScheduler(t)
	mt.configureErr = errors.New("pll unlock")
	if err := s.SetSampleRate(48000); err == nil {
		t.Fatal("SetSampleRate() should fail")
	}
	if s.Rate() != 0 {
		t.Errorf("Rate() = %d after failure, want 0", s.Rate())
	}
}

func TestScheduler_Refill(t *testing.T) {
	s, mt, rb := newTestScheduler(t)
	_ = s.SetSampleRate(8000) // 64 samples, 192 bytes per segment
	_ = s.Start()

	seg := s.SegmentBytes()
	data := bytes.Repeat([]byte{0xAB}, seg)
	_ = rb.Write(data)

	mt.fire(hal.SegmentHalf)
	if !bytes.Equal(mt.buf[:seg], data) {
		t.Error("segment 0 not refilled from ring")
	}
	st := s.State()
	if st.Refilled != 0 || st.Playing != 1 || st.Starved {
		t.Errorf("State() = %+v, want refilled 0, playing 1", st)
	}

	_ = rb.Write(bytes.Repeat([]byte{0xCD}, seg))
	mt.fire(hal.SegmentFull)
	if mt.buf[seg] != 0xCD || mt.buf[2*seg-1] != 0xCD {
		t.Error("segment 1 not refilled from ring")
	}
	if s.Refills() != 2 {
		t.Errorf("Refills() = %d, want 2", s.Refills())
	}
}

func TestScheduler_Underrun(t *testing.T) {
	s, mt, rb := newTestScheduler(t)
	_ = s.SetSampleRate(8000)
	_ = s.Start()
	seg := s.SegmentBytes()

	copy(mt.buf, bytes.Repeat([]byte{0x55}, len(mt.buf)))
	before := rb.Underruns()

	mt.fire(hal.SegmentFull)

	if !bytes.Equal(mt.buf[seg:2*seg], make([]byte, seg)) {
		t.Error("starved segment not silent")
	}
	if mt.buf[0] != 0x55 {
		t.Error("playing segment was modified")
	}
	if got := rb.Underruns() - before; got != 1 {
		t.Errorf("underruns increased by %d, want 1", got)
	}
	if !s.State().Starved {
		t.Error("starvation flag not raised")
	}
	if s.ZeroFills() != 1 {
		t.Errorf("ZeroFills() = %d, want 1", s.ZeroFills())
	}

	// partial data still counts as starvation and is kept for later
	_ = rb.Write(make([]byte, seg/2))
	mt.fire(hal.SegmentHalf)
	if rb.AvailableForRead() != seg/2 {
		t.Error("partial data consumed on starvation")
	}
}

func TestScheduler_IgnoredWhileStopped(t *testing.T) {
	s, mt, rb := newTestScheduler(t)
	_ = s.SetSampleRate(8000)
	_ = s.Start()
	_ = s.Stop()

	_ = rb.Write(make([]byte, s.SegmentBytes()))
	mt.fire(hal.SegmentHalf)
	if rb.AvailableForRead() != s.SegmentBytes() {
		t.Error("stopped scheduler consumed ring data")
	}
	if s.ZeroFills() != 0 || s.Refills() != 0 {
		t.Error("stopped scheduler counted a refill")
	}
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s, mt, _ := newTestScheduler(t)
	_ = s.SetSampleRate(48000)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() before start error = %v", err)
	}
	if mt.stops != 0 {
		t.Errorf("Stop() on stopped scheduler reached transport")
	}

	_ = s.Start()
	_ = s.Stop()
	first := s.State()
	_ = s.Stop()
	if mt.stops != 1 {
		t.Errorf("transport stops = %d, want 1", mt.stops)
	}
	if s.State() != first || s.Running() {
		t.Error("second Stop() changed state")
	}
}

func TestScheduler_RestartCycle(t *testing.T) {
	s, mt, rb := newTestScheduler(t)
	_ = s.SetSampleRate(48000)

	for i := 0; i < 2; i++ {
		if err := s.Start(); err != nil {
			t.Fatalf("cycle %d: Start() error = %v", i, err)
		}
		_ = rb.Write(bytes.Repeat([]byte{0x7F}, s.SegmentBytes()))
		mt.fire(hal.SegmentHalf)
		_ = s.Stop()
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.Running() {
		t.Error("scheduler not running after restart cycle")
	}
	if !bytes.Equal(mt.startBuf, make([]byte, len(mt.startBuf))) {
		t.Error("segments not silence-initialized at start")
	}
	if mt.starts != 3 || mt.stops != 2 {
		t.Errorf("starts/stops = %d/%d, want 3/2", mt.starts, mt.stops)
	}
}

func TestScheduler_StartError(t *testing.T) {
	s, mt, _ := newTestScheduler(t)
	_ = s.SetSampleRate(48000)
	mt.startErr = errors.New("dma busy")

	if err := s.Start(); err == nil {
		t.Fatal("Start() should fail")
	}
	if s.Running() {
		t.Error("Running() = true after failed start")
	}
}
