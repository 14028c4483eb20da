package sim

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ardnew/softdac/device"
	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/pkg"
)

// maxPacket bounds generated OUT packets.
const maxPacket = 1024

// HostConfig describes the simulated host and the function it talks to.
type HostConfig struct {
	ControlInterface   uint8
	StreamingInterface uint8
	FeatureUnitID      uint8
	OutEndpoint        uint8
	FeedbackEndpoint   uint8

	Rate         uint32
	Channels     uint8
	SubslotBytes uint8

	ToneHz    float64 // Generated sine frequency; 0 sends silence
	Amplitude float64 // Peak level, 0 to 1

	// Every Nth frame the OUT packet or the feedback poll is reported
	// incomplete instead of delivered. 0 disables.
	DropOutEvery      uint64
	DropFeedbackEvery uint64
}

// HostStats counts host-side traffic.
type HostStats struct {
	Frames          uint64
	Packets         uint64
	Bytes           uint64
	DroppedOut      uint64
	DroppedFeedback uint64
	Feedback        uint32 // Last feedback value, 10.14 samples per frame
}

// FeedbackHz converts the last feedback value to a rate in Hz at full speed.
func (s HostStats) FeedbackHz() float64 {
	return float64(s.Feedback) * 1000 / (1 << 14)
}

// Host simulates a full-speed USB host streaming to the audio function. It
// implements [hal.AudioFunction] for the class driver and delivers
// [hal.AudioEvents] from [Host.Frame], one call per 1 ms frame. Packet sizes
// follow the feedback value the function reports, so the mean rate tracks
// the function's clock.
type Host struct {
	cfg    HostConfig
	config *device.Configuration
	events hal.AudioEvents

	mutex       sync.Mutex
	armed       bool
	armedSize   int
	fbPending   bool
	fbData      [3]byte
	controlIn   []byte
	controlRx   int
	stalled     bool
	stats       HostStats
	accumulator uint32
	phase       float64

	packet [maxPacket]byte
}

var _ hal.AudioFunction = (*Host)(nil)

// NewHost creates a host bound to the function's interfaces. Events are
// delivered once [Host.Attach] is called.
func NewHost(cfg HostConfig, config *device.Configuration) *Host {
	return &Host{
		cfg:       cfg,
		config:    config,
		controlRx: -1,
	}
}

// Attach sets the event sink, normally the class driver.
func (h *Host) Attach(events hal.AudioEvents) {
	h.events = events
}

// PrepareReceive arms the OUT endpoint for the next frame.
func (h *Host) PrepareReceive(ep uint8, size int) error {
	if ep != h.cfg.OutEndpoint {
		return fmt.Errorf("%w: endpoint 0x%02X", pkg.ErrInvalidParameter, ep)
	}
	h.mutex.Lock()
	h.armed = true
	h.armedSize = min(size, maxPacket)
	h.mutex.Unlock()
	return nil
}

// Transmit queues a feedback value for the next poll.
func (h *Host) Transmit(ep uint8, data []byte) error {
	if ep != h.cfg.FeedbackEndpoint {
		return fmt.Errorf("%w: endpoint 0x%02X", pkg.ErrInvalidParameter, ep)
	}
	if len(data) < len(h.fbData) {
		return pkg.ErrBufferTooSmall
	}
	h.mutex.Lock()
	copy(h.fbData[:], data)
	h.fbPending = true
	h.mutex.Unlock()
	return nil
}

// Flush cancels whatever is pending on ep.
func (h *Host) Flush(ep uint8) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	switch ep {
	case h.cfg.OutEndpoint:
		h.armed = false
	case h.cfg.FeedbackEndpoint:
		h.fbPending = false
	default:
		return fmt.Errorf("%w: endpoint 0x%02X", pkg.ErrInvalidParameter, ep)
	}
	return nil
}

// SendControl records the IN data stage of the current control transfer.
func (h *Host) SendControl(data []byte) error {
	h.mutex.Lock()
	h.controlIn = append(h.controlIn[:0], data...)
	h.mutex.Unlock()
	return nil
}

// PrepareControlReceive records that the device expects an OUT data stage.
func (h *Host) PrepareControlReceive(n int) error {
	h.mutex.Lock()
	h.controlRx = n
	h.mutex.Unlock()
	return nil
}

// StallControl records a stall of the current control transfer.
func (h *Host) StallControl() error {
	h.mutex.Lock()
	h.stalled = true
	h.mutex.Unlock()
	return nil
}

// Frame runs one USB frame: SOF, then the OUT packet if armed, then the
// feedback poll if a value is queued.
func (h *Host) Frame() {
	if h.events == nil {
		return
	}
	h.events.OnSOF()

	h.mutex.Lock()
	h.stats.Frames++
	frame := h.stats.Frames
	armed, size := h.armed, h.armedSize
	h.armed = false
	dropOut := armed && every(frame, h.cfg.DropOutEvery)
	var payload []byte
	if armed && !dropOut {
		payload = h.generate(size)
		h.stats.Packets++
		h.stats.Bytes += uint64(len(payload))
	}
	if dropOut {
		h.stats.DroppedOut++
	}

	fbPending := h.fbPending
	h.fbPending = false
	dropFb := fbPending && every(frame, h.cfg.DropFeedbackEvery)
	if fbPending && !dropFb {
		h.stats.Feedback = uint32(h.fbData[0]) | uint32(h.fbData[1])<<8 | uint32(h.fbData[2])<<16
	}
	if dropFb {
		h.stats.DroppedFeedback++
	}
	h.mutex.Unlock()

	switch {
	case dropOut:
		h.events.OnIsoOutIncomplete(h.cfg.OutEndpoint)
	case armed:
		h.events.OnDataReady(h.cfg.OutEndpoint, payload)
	}
	switch {
	case dropFb:
		h.events.OnFeedbackIncomplete(h.cfg.FeedbackEndpoint)
	case fbPending:
		h.events.OnFeedbackComplete(h.cfg.FeedbackEndpoint)
	}
}

// Run calls Frame every millisecond until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Frame()
		}
	}
}

// Stats returns a copy of the traffic counters.
func (h *Host) Stats() HostStats {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.stats
}

// generate builds the next packet into h.packet. The mutex must be held.
// The packet carries the whole samples accumulated from the feedback value,
// limited to size.
func (h *Host) generate(size int) []byte {
	frameSize := int(h.cfg.Channels) * int(h.cfg.SubslotBytes)
	if frameSize == 0 {
		return nil
	}

	perFrame := h.stats.Feedback
	if perFrame == 0 {
		perFrame = (h.cfg.Rate << 14) / 1000
	}
	h.accumulator += perFrame
	frames := int(h.accumulator >> 14)
	h.accumulator &= 1<<14 - 1
	frames = min(frames, size/frameSize)

	n := frames * frameSize
	out := h.packet[:n]
	h.fillTone(out, frames)
	return out
}

func (h *Host) fillTone(out []byte, frames int) {
	if h.cfg.ToneHz == 0 || h.cfg.Amplitude == 0 {
		clear(out)
		return
	}

	sub := int(h.cfg.SubslotBytes)
	full := float64(int64(1)<<(8*sub-1) - 1)
	step := 2 * math.Pi * h.cfg.ToneHz / float64(h.cfg.Rate)

	var sample [4]byte
	pos := 0
	for range frames {
		v := int32(math.Round(h.cfg.Amplitude * full * math.Sin(h.phase)))
		binary.LittleEndian.PutUint32(sample[:], uint32(v))
		for range h.cfg.Channels {
			copy(out[pos:pos+sub], sample[:sub])
			pos += sub
		}
		h.phase += step
		if h.phase >= 2*math.Pi {
			h.phase -= 2 * math.Pi
		}
	}
}

func every(frame, n uint64) bool {
	return n != 0 && frame%n == 0
}
