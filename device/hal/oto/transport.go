package oto

import (
	"fmt"
	"sync"
	"time"

	otolib "github.com/ebitengine/oto/v3"

	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/pkg"
)

// DefaultBufferSize is the player latency used when none is given.
const DefaultBufferSize = 20 * time.Millisecond

// Transport plays the circular output buffer through the system audio
// device. Samples are converted to 16-bit PCM as the player pulls them, and
// segment events fire on the player's goroutine.
//
// The process-wide audio context is created on the first Configure; later
// calls must keep its rate and channel count.
type Transport struct {
	bufferSize time.Duration

	mutex    sync.Mutex
	ctx      *otolib.Context
	player   *otolib.Player
	rate     uint32
	channels uint8
	subslot  uint8
	running  bool

	pump pump
}

var _ hal.Transport = (*Transport)(nil)

// NewTransport creates a transport with the given player latency.
func NewTransport(bufferSize time.Duration) *Transport {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Transport{bufferSize: bufferSize}
}

// Configure opens the audio context on first use.
func (t *Transport) Configure(rate uint32, channels, subslotBytes uint8) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.running {
		return pkg.ErrAlreadyRunning
	}
	if subslotBytes < 2 || subslotBytes > 4 {
		return fmt.Errorf("%w: %d-byte samples", pkg.ErrNotSupported, subslotBytes)
	}

	if t.ctx != nil {
		if rate != t.rate || channels != t.channels {
			return fmt.Errorf("%w: audio context fixed at %d Hz, %d channels",
				pkg.ErrNotSupported, t.rate, t.channels)
		}
		t.subslot = subslotBytes
		return nil
	}

	ctx, ready, err := otolib.NewContext(&otolib.NewContextOptions{
		SampleRate:   int(rate),
		ChannelCount: int(channels),
		Format:       otolib.FormatSignedInt16LE,
		BufferSize:   t.bufferSize,
	})
	if err != nil {
		return fmt.Errorf("open audio context: %w", err)
	}
	<-ready

	t.ctx = ctx
	t.player = ctx.NewPlayer(&t.pump)
	t.rate = rate
	t.channels = channels
	t.subslot = subslotBytes

	pkg.LogInfo(pkg.ComponentHAL, "oto audio context opened",
		"rate", rate,
		"channels", channels,
		"buffer", t.bufferSize)
	return nil
}

// StartCircular starts the player over buf.
func (t *Transport) StartCircular(buf []byte, onSegment hal.SegmentHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.player == nil {
		return fmt.Errorf("%w: transport not configured", pkg.ErrInvalidState)
	}
	if t.running {
		return pkg.ErrAlreadyRunning
	}

	t.pump.start(buf, onSegment, t.channels, t.subslot)
	t.player.Play()
	t.running = true
	return nil
}

// Stop pauses the player. No segment event is delivered after Stop returns.
func (t *Transport) Stop() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.running {
		return nil
	}
	t.pump.stop()
	t.player.Pause()
	t.running = false
	return nil
}

// Close stops playback and releases the player. The audio context stays
// open for the life of the process.
func (t *Transport) Close() error {
	if err := t.Stop(); err != nil {
		return err
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.player == nil {
		return nil
	}
	err := t.player.Close()
	t.player = nil
	return err
}
