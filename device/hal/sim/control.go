package sim

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softdac/device"
	"github.com/ardnew/softdac/pkg"
)

// UAC 1.0 request codes and selectors used by the host helpers.
const (
	requestSetCur = 0x01
	requestGetCur = 0x81
	requestGetMin = 0x82
	requestGetMax = 0x83
	requestGetRes = 0x84

	selectorMute         = 0x01
	selectorVolume       = 0x02
	selectorSamplingFreq = 0x01
)

// Control runs a control transfer through the configuration. For
// device-to-host requests it returns the data stage the function sent. For
// host-to-device requests with a data stage, data is delivered once the
// function armed reception.
func (h *Host) Control(setup *device.SetupPacket, data []byte) ([]byte, error) {
	h.mutex.Lock()
	h.controlIn = h.controlIn[:0]
	h.controlRx = -1
	h.stalled = false
	h.mutex.Unlock()

	var reply [1]byte
	handled, err := h.config.HandleSetup(setup, reply[:])
	if err != nil {
		return nil, err
	}
	if !handled {
		return nil, fmt.Errorf("%w: %s", pkg.ErrNotSupported, setup)
	}

	h.mutex.Lock()
	in := append([]byte(nil), h.controlIn...)
	rx, stalled := h.controlRx, h.stalled
	h.mutex.Unlock()

	if stalled {
		return nil, pkg.ErrStall
	}
	if setup.IsDeviceToHost() {
		if setup.IsStandard() && setup.Request == device.RequestGetInterface {
			return reply[:], nil
		}
		return in, nil
	}
	if rx >= 0 && h.events != nil {
		return nil, h.events.OnControlDataStage(data)
	}
	return nil, nil
}

// SetInterface selects an alternate setting of the streaming interface.
func (h *Host) SetInterface(alt uint8) error {
	var setup device.SetupPacket
	device.GetSetInterfaceSetup(&setup, h.cfg.StreamingInterface, alt)
	_, err := h.Control(&setup, nil)
	return err
}

// Interface returns the streaming interface's alternate setting.
func (h *Host) Interface() (uint8, error) {
	var setup device.SetupPacket
	device.GetInterfaceSetup(&setup, h.cfg.StreamingInterface)
	data, err := h.Control(&setup, nil)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// SetMute sets the feature unit mute control.
func (h *Host) SetMute(mute bool) error {
	var v byte
	if mute {
		v = 1
	}
	return h.setFeature(selectorMute, []byte{v})
}

// Mute reads the feature unit mute control.
func (h *Host) Mute() (bool, error) {
	data, err := h.getFeature(requestGetCur, selectorMute, 1)
	if err != nil {
		return false, err
	}
	return len(data) == 1 && data[0] != 0, nil
}

// SetVolume sets the feature unit volume in 1/256 dB.
func (h *Host) SetVolume(code int16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(code))
	return h.setFeature(selectorVolume, buf[:])
}

// Volume reads GET_CUR, GET_MIN, GET_MAX or GET_RES of the volume control.
func (h *Host) Volume(request uint8) (int16, error) {
	data, err := h.getFeature(request, selectorVolume, 2)
	if err != nil {
		return 0, err
	}
	if len(data) != 2 {
		return 0, fmt.Errorf("%w: volume reply of %d bytes", pkg.ErrLengthMismatch, len(data))
	}
	return int16(binary.LittleEndian.Uint16(data)), nil
}

// VolumeRange reads the min, max and resolution of the volume control.
func (h *Host) VolumeRange() (lo, hi, res int16, err error) {
	if lo, err = h.Volume(requestGetMin); err != nil {
		return
	}
	if hi, err = h.Volume(requestGetMax); err != nil {
		return
	}
	res, err = h.Volume(requestGetRes)
	return
}

// SetSampleRate sets the sampling frequency control of the OUT endpoint. The
// host generator follows the new rate.
func (h *Host) SetSampleRate(rate uint32) error {
	buf := []byte{byte(rate), byte(rate >> 8), byte(rate >> 16)}
	var setup device.SetupPacket
	device.ClassEndpointSetup(&setup, requestSetCur, selectorSamplingFreq, h.cfg.OutEndpoint, uint16(len(buf)))
	if _, err := h.Control(&setup, buf); err != nil {
		return err
	}

	h.mutex.Lock()
	h.cfg.Rate = rate
	h.accumulator = 0
	h.stats.Feedback = 0
	h.mutex.Unlock()
	return nil
}

// SampleRate reads the sampling frequency control of the OUT endpoint.
func (h *Host) SampleRate() (uint32, error) {
	var setup device.SetupPacket
	device.ClassEndpointSetup(&setup, requestGetCur, selectorSamplingFreq, h.cfg.OutEndpoint, 3)
	data, err := h.Control(&setup, nil)
	if err != nil {
		return 0, err
	}
	if len(data) != 3 {
		return 0, fmt.Errorf("%w: rate reply of %d bytes", pkg.ErrLengthMismatch, len(data))
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16, nil
}

func (h *Host) setFeature(selector uint8, data []byte) error {
	var setup device.SetupPacket
	device.ClassInterfaceSetup(&setup, requestSetCur, selector, 0,
		h.cfg.FeatureUnitID, h.cfg.ControlInterface, uint16(len(data)))
	_, err := h.Control(&setup, data)
	return err
}

func (h *Host) getFeature(request, selector uint8, length uint16) ([]byte, error) {
	var setup device.SetupPacket
	device.ClassInterfaceSetup(&setup, request, selector, 0,
		h.cfg.FeatureUnitID, h.cfg.ControlInterface, length)
	return h.Control(&setup, nil)
}
