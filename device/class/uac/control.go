package uac

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softdac/device"
	"github.com/ardnew/softdac/pkg"
)

// ControlState is the state of the class control request machine.
type ControlState uint8

// Control request states.
const (
	ControlIdle         ControlState = iota // No request in progress
	ControlAwaitingData                     // SET_CUR staged, data stage armed
	ControlApplying                         // Data stage received, being applied
)

// String returns the state name.
func (s ControlState) String() string {
	switch s {
	case ControlIdle:
		return "idle"
	case ControlAwaitingData:
		return "awaiting-data"
	case ControlApplying:
		return "applying"
	default:
		return "unknown"
	}
}

// pendingRequest is a SET_CUR request between its setup and data stages.
type pendingRequest struct {
	request     uint8
	requestType uint8
	entity      uint8 // Unit ID or endpoint address
	selector    uint8
	channel     uint8
	length      uint16
	endpoint    bool

	data [MaxControlData]byte
}

// controlFSM holds the control machine state and the GET response buffer.
type controlFSM struct {
	state   ControlState
	pending pendingRequest
	resp    [4]byte
}

func (c *controlFSM) reset() {
	c.state = ControlIdle
	c.pending = pendingRequest{}
}

// handleClassRequest answers a class-specific request. Rejected requests
// stall EP0 and return an error wrapping pkg.ErrInvalidRequest.
func (a *Audio) handleClassRequest(setup *device.SetupPacket) (bool, error) {
	var endpoint bool
	switch {
	case setup.IsInterfaceRecipient():
		if setup.InterfaceNumber() != a.cfg.ControlInterface ||
			setup.EntityID() != a.cfg.FeatureUnitID {
			return true, a.stall(setup, "unknown unit")
		}
		if setup.ControlNumber() > a.cfg.Channels {
			return true, a.stall(setup, "unknown channel")
		}
	case setup.IsEndpointRecipient():
		if setup.EndpointAddress() != a.cfg.OutEndpoint {
			return true, a.stall(setup, "unknown endpoint")
		}
		endpoint = true
	default:
		return true, a.stall(setup, "unsupported recipient")
	}

	switch setup.Request {
	case RequestGetCur, RequestGetMin, RequestGetMax, RequestGetRes:
		return true, a.handleGet(setup, endpoint)
	case RequestSetCur:
		return true, a.handleSetCur(setup, endpoint)
	default:
		return true, a.stall(setup, "unsupported request")
	}
}

// handleGet answers GET_CUR/MIN/MAX/RES from cached session state. The
// response is truncated to wLength.
func (a *Audio) handleGet(setup *device.SetupPacket, endpoint bool) error {
	resp := a.control.resp[:]
	var n int

	if endpoint {
		if setup.ControlSelector() != SelectorSamplingFreq {
			return a.stall(setup, "unknown endpoint control")
		}
		var rate uint32
		switch setup.Request {
		case RequestGetCur:
			rate = a.session.Rate
		case RequestGetMin:
			rate = a.minRate()
		case RequestGetMax:
			rate = a.maxRate()
		default:
			return a.stall(setup, "no sampling frequency resolution")
		}
		putRate(resp, rate)
		n = SamplingFreqSize
	} else {
		switch setup.ControlSelector() {
		case SelectorMute:
			switch setup.Request {
			case RequestGetCur:
				resp[0] = 0
				if a.session.Muted {
					resp[0] = 1
				}
			case RequestGetMin:
				resp[0] = 0
			case RequestGetMax, RequestGetRes:
				resp[0] = 1
			}
			n = MuteSize
		case SelectorVolume:
			var code int16
			switch setup.Request {
			case RequestGetCur:
				code = a.session.VolumeCode
			case RequestGetMin:
				code = a.cfg.Volume.Min
			case RequestGetMax:
				code = a.cfg.Volume.Max
			case RequestGetRes:
				code = a.cfg.Volume.Res
			}
			binary.LittleEndian.PutUint16(resp, uint16(code))
			n = VolumeSize
		default:
			return a.stall(setup, "unknown feature unit control")
		}
	}

	n = min(n, int(setup.Length))
	return a.fn.SendControl(resp[:n])
}

// handleSetCur stages a SET_CUR request and arms its data stage. A request
// without a data stage is acknowledged with no effect.
func (a *Audio) handleSetCur(setup *device.SetupPacket, endpoint bool) error {
	if setup.Length == 0 {
		return nil
	}
	if setup.Length > MaxControlData {
		return a.stall(setup, "data stage too long")
	}
	if want := controlSize(endpoint, setup.ControlSelector()); want != 0 && int(setup.Length) != want {
		return a.stall(setup, "length mismatch")
	}

	if a.control.state != ControlIdle {
		pkg.LogDebug(pkg.ComponentControl, "pending request replaced",
			"selector", a.control.pending.selector)
	}

	p := &a.control.pending
	p.request = setup.Request
	p.requestType = setup.RequestType
	p.selector = setup.ControlSelector()
	p.channel = setup.ControlNumber()
	p.length = setup.Length
	p.endpoint = endpoint
	if endpoint {
		p.entity = setup.EndpointAddress()
	} else {
		p.entity = setup.EntityID()
	}
	a.control.state = ControlAwaitingData

	if err := a.fn.PrepareControlReceive(int(setup.Length)); err != nil {
		a.control.reset()
		return err
	}
	return nil
}

// applyDataStage dispatches a completed SET_CUR data stage. A length that
// does not match the staged request is rejected and leaves the session
// untouched.
func (a *Audio) applyDataStage(data []byte) error {
	if a.control.state != ControlAwaitingData {
		return fmt.Errorf("%w: no pending control request", pkg.ErrInvalidState)
	}
	p := &a.control.pending
	if len(data) != int(p.length) {
		pkg.LogWarn(pkg.ComponentControl, "data stage length mismatch",
			"selector", p.selector,
			"want", p.length,
			"got", len(data))
		a.control.reset()
		return fmt.Errorf("%w: want %d bytes, got %d", pkg.ErrLengthMismatch, p.length, len(data))
	}
	copy(p.data[:], data)
	a.control.state = ControlApplying
	defer a.control.reset()

	value := p.data[:p.length]
	if p.endpoint {
		if p.selector == SelectorSamplingFreq {
			return a.applySampleRate(getRate(value))
		}
	} else {
		switch p.selector {
		case SelectorMute:
			return a.applyMute(value[0] != 0)
		case SelectorVolume:
			return a.applyVolume(int16(binary.LittleEndian.Uint16(value)))
		}
	}

	pkg.LogDebug(pkg.ComponentControl, "SET_CUR for unknown control discarded",
		"entity", p.entity,
		"selector", p.selector)
	return nil
}

func (a *Audio) applyMute(muted bool) error {
	a.session.Muted = muted
	pkg.LogDebug(pkg.ComponentControl, "mute set", "muted", muted)

	if a.state != StateStreaming {
		return nil
	}
	return a.out.SetMute(muted)
}

func (a *Audio) applyVolume(code int16) error {
	code = a.cfg.Volume.Clamp(code)
	a.session.VolumeCode = code
	a.session.VolumePercent = a.cfg.Volume.Percent(code)
	pkg.LogDebug(pkg.ComponentControl, "volume set",
		"code", fmt.Sprintf("0x%04X", uint16(code)),
		"dB", VolumeDB(code),
		"percent", a.session.VolumePercent)

	return a.out.SetVolumePercent(a.session.VolumePercent)
}

// applySampleRate changes the configured rate. While streaming the output
// is reinitialized at the new rate; on failure the stream stops and the
// output stays muted.
func (a *Audio) applySampleRate(rate uint32) error {
	if !a.supportsRate(rate) {
		return fmt.Errorf("%w: rate %d", pkg.ErrNotSupported, rate)
	}
	if rate == a.session.Rate {
		return nil
	}

	prev := a.session.Rate
	a.session.Rate = rate
	pkg.LogInfo(pkg.ComponentControl, "sampling frequency set",
		"from", prev,
		"to", rate)

	if a.state != StateStreaming {
		return nil
	}
	return a.restartLocked()
}

func (a *Audio) stall(setup *device.SetupPacket, reason string) error {
	pkg.LogDebug(pkg.ComponentControl, "request stalled",
		"reason", reason,
		"setup", setup.String())
	if err := a.fn.StallControl(); err != nil {
		pkg.LogWarn(pkg.ComponentControl, "stall failed", "error", err)
	}
	return fmt.Errorf("%w: %s", pkg.ErrInvalidRequest, reason)
}

// controlSize returns the data length of a known control, or 0.
func controlSize(endpoint bool, selector uint8) int {
	if endpoint {
		if selector == SelectorSamplingFreq {
			return SamplingFreqSize
		}
		return 0
	}
	switch selector {
	case SelectorMute:
		return MuteSize
	case SelectorVolume:
		return VolumeSize
	}
	return 0
}

func putRate(buf []byte, rate uint32) {
	buf[0] = byte(rate)
	buf[1] = byte(rate >> 8)
	buf[2] = byte(rate >> 16)
}

func getRate(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
}
