package sim

import (
	"sync"

	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/pkg"
)

// CodecState is the last configuration applied to a Codec.
type CodecState struct {
	Rate       uint32
	BitDepth   uint8
	Volume     uint8
	Muted      bool
	Configures int
}

// Codec records the settings the output path applies to the DAC.
type Codec struct {
	mutex sync.Mutex
	state CodecState
	err   error
}

var _ hal.Codec = (*Codec)(nil)

// NewCodec creates a muted codec.
func NewCodec() *Codec {
	return &Codec{state: CodecState{Muted: true}}
}

// FailWith makes every subsequent call return err. nil restores success.
func (c *Codec) FailWith(err error) {
	c.mutex.Lock()
	c.err = err
	c.mutex.Unlock()
}

// Configure records rate and bit depth.
func (c *Codec) Configure(rate uint32, bitDepth uint8) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.err != nil {
		return c.err
	}
	c.state.Rate = rate
	c.state.BitDepth = bitDepth
	c.state.Configures++
	pkg.LogDebug(pkg.ComponentHAL, "sim codec configured",
		"rate", rate,
		"bitDepth", bitDepth)
	return nil
}

// SetVolume records the volume.
func (c *Codec) SetVolume(percent uint8) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.err != nil {
		return c.err
	}
	c.state.Volume = percent
	return nil
}

// SetMute records the mute state.
func (c *Codec) SetMute(mute bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.err != nil {
		return c.err
	}
	c.state.Muted = mute
	return nil
}

// State returns the recorded settings.
func (c *Codec) State() CodecState {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}
