package uac

import (
	"fmt"

	"github.com/ardnew/softdac/pkg"
)

// StreamState is the lifecycle state of the audio stream.
type StreamState uint8

// Stream states.
const (
	StateIdle      StreamState = iota // No USB configuration
	StateStopped                      // Configured, alternate setting 0
	StateStreaming                    // Alternate setting 1
)

// String returns the state name.
func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStopped:
		return "stopped"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s StreamState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// setAlternateLocked applies an alternate setting of the streaming
// interface. The feedback endpoint is flushed on every request.
func (a *Audio) setAlternateLocked(alt uint8) error {
	if a.state == StateIdle {
		return pkg.ErrNotConfigured
	}
	if alt > AltStreaming {
		return fmt.Errorf("%w: alternate setting %d", pkg.ErrInvalidRequest, alt)
	}

	a.flush(a.cfg.FeedbackEndpoint)

	if alt == a.session.Alt {
		if a.state == StateStreaming {
			// The flush dropped the queued feedback value.
			a.sendFeedback()
		}
		return nil
	}

	if alt == AltStreaming {
		return a.startLocked()
	}
	return a.stopLocked()
}

// startLocked moves Stopped to Streaming. On output failure the device is
// muted and the stream stays stopped.
func (a *Audio) startLocked() error {
	a.flush(a.cfg.OutEndpoint)
	a.flush(a.cfg.FeedbackEndpoint)

	if err := a.out.Init(a.session.Rate, a.session.VolumePercent); err != nil {
		pkg.LogError(pkg.ComponentStream, "output init failed",
			"rate", a.session.Rate,
			"error", err)
		if merr := a.out.SetMute(true); merr != nil {
			pkg.LogWarn(pkg.ComponentStream, "mute failed", "error", merr)
		}
		return err
	}
	if err := a.out.SetMute(a.session.Muted); err != nil {
		pkg.LogWarn(pkg.ComponentStream, "mute failed", "error", err)
	}

	a.feedback.Reset(a.session.Rate)
	a.session.Alt = AltStreaming
	a.session.LastFill = 50
	a.state = StateStreaming

	a.arm(a.cfg.OutEndpoint)
	a.sendFeedback()

	fb := a.feedback.State()
	pkg.LogInfo(pkg.ComponentStream, "streaming started",
		"rate", a.session.Rate,
		"channels", a.session.Channels,
		"bitDepth", a.session.BitDepth(),
		"realRate", fb.RealRate,
		"nominal", fb.Nominal)
	return nil
}

// stopLocked moves Streaming to Stopped: output stopped, device muted,
// both endpoints flushed.
func (a *Audio) stopLocked() error {
	err := a.out.DeInit()
	if err != nil {
		pkg.LogError(pkg.ComponentStream, "output deinit failed", "error", err)
	}
	if merr := a.out.SetMute(true); merr != nil {
		pkg.LogWarn(pkg.ComponentStream, "mute failed", "error", merr)
	}

	a.flush(a.cfg.OutEndpoint)
	a.flush(a.cfg.FeedbackEndpoint)

	a.feedback.Reset(a.session.Rate)
	a.session.Alt = AltIdle
	a.session.LastFill = 50
	a.state = StateStopped

	pkg.LogInfo(pkg.ComponentStream, "streaming stopped")
	return err
}

// restartLocked reinitializes a running stream at the session rate.
func (a *Audio) restartLocked() error {
	a.flush(a.cfg.OutEndpoint)
	a.flush(a.cfg.FeedbackEndpoint)

	if err := a.out.Init(a.session.Rate, a.session.VolumePercent); err != nil {
		pkg.LogError(pkg.ComponentStream, "output reinit failed",
			"rate", a.session.Rate,
			"error", err)
		if merr := a.out.SetMute(true); merr != nil {
			pkg.LogWarn(pkg.ComponentStream, "mute failed", "error", merr)
		}
		a.feedback.Reset(a.session.Rate)
		a.session.Alt = AltIdle
		a.state = StateStopped
		a.resetStreamInterface()
		return err
	}
	if err := a.out.SetMute(a.session.Muted); err != nil {
		pkg.LogWarn(pkg.ComponentStream, "mute failed", "error", err)
	}

	a.feedback.Reset(a.session.Rate)
	a.session.LastFill = 50
	a.arm(a.cfg.OutEndpoint)
	a.sendFeedback()
	return nil
}

// ingest copies one OUT packet into the ring. Overruns are counted by the
// ring and the packet dropped.
func (a *Audio) ingest(payload []byte) {
	if a.state != StateStreaming || len(payload) == 0 {
		return
	}
	if err := a.ring.Write(payload); err != nil {
		return
	}
	a.stats.received(len(payload))
}

// arm prepares reception of the next OUT packet.
func (a *Audio) arm(ep uint8) {
	if err := a.fn.PrepareReceive(ep, int(a.cfg.MaxPacket)); err != nil {
		pkg.LogWarn(pkg.ComponentStream, "re-arm failed",
			"endpoint", ep,
			"error", err)
	}
}

func (a *Audio) flush(ep uint8) {
	if err := a.fn.Flush(ep); err != nil {
		pkg.LogWarn(pkg.ComponentStream, "flush failed",
			"endpoint", ep,
			"error", err)
	}
}

// resetStreamInterface returns the bound streaming interface to alternate
// setting 0 when the driver stops the stream without a SET_INTERFACE, so
// GET_INTERFACE matches the stream state.
func (a *Audio) resetStreamInterface() {
	if a.streamIface != nil {
		a.streamIface.Reset()
	}
}
