package output

import (
	"fmt"
	"sync"

	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/pkg"
)

// Device is the output path consumed by the class driver: a scheduler
// feeding a transport, plus the codec controlling the DAC.
type Device struct {
	sched    *Scheduler
	codec    hal.Codec
	bitDepth uint8

	mutex       sync.Mutex
	initialized bool
}

var _ hal.OutputDevice = (*Device)(nil)

// NewDevice composes a scheduler and a codec. bitDepth is the codec sample
// width in bits.
func NewDevice(sched *Scheduler, codec hal.Codec, bitDepth uint8) *Device {
	return &Device{
		sched:    sched,
		codec:    codec,
		bitDepth: bitDepth,
	}
}

// Init stops any running output, reconfigures the transport and codec for
// rate, applies the volume and starts output. On failure the output stays
// stopped.
func (d *Device) Init(rate uint32, volumePercent uint8) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.sched.Stop(); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrOutputInit, err)
	}
	if err := d.sched.SetSampleRate(rate); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrOutputInit, err)
	}
	if d.codec != nil {
		if err := d.codec.Configure(rate, d.bitDepth); err != nil {
			return fmt.Errorf("%w: codec: %w", pkg.ErrOutputInit, err)
		}
		if err := d.codec.SetVolume(clampPercent(volumePercent)); err != nil {
			return fmt.Errorf("%w: codec volume: %w", pkg.ErrOutputInit, err)
		}
	}
	if err := d.sched.Start(); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrOutputInit, err)
	}

	d.initialized = true
	pkg.LogInfo(pkg.ComponentOutput, "output device initialized",
		"rate", rate,
		"volume", volumePercent)
	return nil
}

// DeInit stops output and empties the ring. It is safe to call when not
// initialized.
func (d *Device) DeInit() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.sched.Stop(); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrOutputDeInit, err)
	}
	d.sched.Ring().Reset()

	if d.initialized {
		d.initialized = false
		pkg.LogInfo(pkg.ComponentOutput, "output device stopped")
	}
	return nil
}

// SetVolumePercent forwards the volume to the codec, clamped to 100.
func (d *Device) SetVolumePercent(percent uint8) error {
	if d.codec == nil {
		return nil
	}
	return d.codec.SetVolume(clampPercent(percent))
}

// SetMute forwards the mute state to the codec.
func (d *Device) SetMute(mute bool) error {
	if d.codec == nil {
		return nil
	}
	return d.codec.SetMute(mute)
}

// BufferLevelPercent returns the ring fill level.
func (d *Device) BufferLevelPercent() uint8 {
	return d.sched.Ring().FillPercent()
}

// ZeroFills returns the number of segments the scheduler replaced with
// silence.
func (d *Device) ZeroFills() uint64 {
	return d.sched.ZeroFills()
}

// Scheduler returns the underlying scheduler.
func (d *Device) Scheduler() *Scheduler { return d.sched }

func clampPercent(p uint8) uint8 {
	return min(p, 100)
}
