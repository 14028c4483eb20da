package uac

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ardnew/softdac/device"
	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/device/output"
	"github.com/ardnew/softdac/pkg"
	"github.com/ardnew/softdac/pkg/ring"
)

// Config describes the audio function layout and stream format.
type Config struct {
	// Function layout
	ControlInterface   uint8 // AudioControl interface number
	StreamingInterface uint8 // AudioStreaming interface number
	FeatureUnitID      uint8 // Feature unit carrying mute and volume
	OutEndpoint        uint8 // Isochronous OUT data endpoint
	FeedbackEndpoint   uint8 // Isochronous IN feedback endpoint

	// Stream format
	Rate         uint32   // Initial sample rate in Hz
	Rates        []uint32 // Settable sample rates
	Channels     uint8
	SubslotBytes uint8
	MaxPacket    uint16 // OUT endpoint packet size; 0 derives it from Rates

	// Feature unit
	Volume        VolumeRange
	DefaultVolume int16 // Volume code at configuration

	// Feedback
	BiasHz       uint32
	WindowFrames uint32
	RealRates    map[uint32]uint32

	Speed device.Speed
}

// DefaultConfig returns a 48 kHz stereo 24-bit full-speed configuration.
func DefaultConfig() Config {
	return Config{
		ControlInterface:   DefaultControlInterface,
		StreamingInterface: DefaultStreamingInterface,
		FeatureUnitID:      DefaultFeatureUnitID,
		OutEndpoint:        DefaultOutEndpoint,
		FeedbackEndpoint:   DefaultFeedbackEndpoint,
		Rate:               DefaultRate,
		Rates:              slices.Clone(output.SupportedRates[:]),
		Channels:           DefaultChannels,
		SubslotBytes:       DefaultSubslotBytes,
		Volume:             DefaultVolumeRange,
		DefaultVolume:      DefaultVolumeRange.Min,
		BiasHz:             DefaultBiasHz,
		WindowFrames:       1,
		Speed:              device.SpeedFull,
	}
}

// MaxPacketSize returns the OUT packet size needed to carry rate with one
// extra frame of headroom per (micro)frame.
func MaxPacketSize(rate uint32, channels, subslotBytes uint8, speed device.Speed) uint16 {
	perFrame := rate/speed.FramesPerSecond() + 1
	return uint16(perFrame * uint32(channels) * uint32(subslotBytes))
}

// Validate checks the configuration and fills derived fields.
func (c *Config) Validate() error {
	if c.Speed == 0 {
		c.Speed = device.SpeedFull
	}
	if len(c.Rates) == 0 {
		c.Rates = slices.Clone(output.SupportedRates[:])
	}
	for _, r := range c.Rates {
		if !output.IsSupportedRate(r) {
			return fmt.Errorf("%w: rate %d not supported by output", pkg.ErrInvalidParameter, r)
		}
	}
	if !slices.Contains(c.Rates, c.Rate) {
		return fmt.Errorf("%w: rate %d not in %v", pkg.ErrInvalidParameter, c.Rate, c.Rates)
	}
	if c.Channels == 0 || c.Channels > 8 {
		return fmt.Errorf("%w: channels %d", pkg.ErrInvalidParameter, c.Channels)
	}
	if c.SubslotBytes == 0 || c.SubslotBytes > 4 {
		return fmt.Errorf("%w: subslot size %d", pkg.ErrInvalidParameter, c.SubslotBytes)
	}
	if c.OutEndpoint&0x80 != 0 || c.FeedbackEndpoint&0x80 == 0 {
		return fmt.Errorf("%w: endpoint directions 0x%02X/0x%02X",
			pkg.ErrInvalidParameter, c.OutEndpoint, c.FeedbackEndpoint)
	}
	if err := c.Volume.Validate(); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrInvalidParameter, err)
	}

	need := MaxPacketSize(slices.Max(c.Rates), c.Channels, c.SubslotBytes, c.Speed)
	if c.MaxPacket == 0 {
		c.MaxPacket = need
	} else if c.MaxPacket < need {
		return fmt.Errorf("%w: max packet %d below %d", pkg.ErrInvalidParameter, c.MaxPacket, need)
	}
	return nil
}

// Status is a snapshot of the stream for diagnostics.
type Status struct {
	State          StreamState  `yaml:"state"`
	Control        ControlState `yaml:"-"`
	Rate           uint32       `yaml:"rate"`
	BitDepth       uint8        `yaml:"bit_depth"`
	Channels       uint8        `yaml:"channels"`
	Muted          bool         `yaml:"muted"`
	VolumeCode     int16        `yaml:"volume_code"`
	VolumePercent  uint8        `yaml:"volume_percent"`
	BufferFill     uint8        `yaml:"buffer_fill"`
	Overruns       uint64       `yaml:"overruns"`
	Underruns      uint64       `yaml:"underruns"`
	ZeroFills      uint64       `yaml:"zero_fills"`
	Rates          EventRates   `yaml:"rates"`
	HostRateHz     uint32       `yaml:"host_rate_hz"`
	FeedbackTarget uint32       `yaml:"feedback_target"`
	FeedbackHz     uint32       `yaml:"feedback_hz"`
	RealRateHz     uint32       `yaml:"real_rate_hz"`
}

// zeroFiller is implemented by output devices that count silent segments.
type zeroFiller interface {
	ZeroFills() uint64
}

// Audio is a UAC 1.0 speaker class driver. It owns the stream session, the
// feedback controller and the control request machine, and is the producer
// side of the elastic ring.
//
// Every event handler is expected on the HAL's input flow. Status may be
// called from any goroutine.
type Audio struct {
	cfg  Config
	fn   hal.AudioFunction
	out  hal.OutputDevice
	ring *ring.Buffer

	feedback *FeedbackController
	stats    *stats

	streamIface *device.Interface

	mutex   sync.Mutex
	state   StreamState
	session Session
	control controlFSM
	closed  bool
}

var (
	_ device.ClassDriver = (*Audio)(nil)
	_ hal.AudioEvents    = (*Audio)(nil)
)

// NewAudio creates the class driver. rb is the ring consumed by the output
// device's scheduler.
func NewAudio(cfg Config, fn hal.AudioFunction, out hal.OutputDevice, rb *ring.Buffer) (*Audio, error) {
	if fn == nil || out == nil || rb == nil {
		return nil, fmt.Errorf("%w: nil dependency", pkg.ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Audio{
		cfg:      cfg,
		fn:       fn,
		out:      out,
		ring:     rb,
		feedback: NewFeedbackController(cfg.BiasHz, cfg.WindowFrames, cfg.RealRates),
		stats:    newStats(cfg.Speed.FramesPerSecond()),
	}, nil
}

// Config returns the validated configuration.
func (a *Audio) Config() Config {
	return a.cfg
}

// State returns the stream state.
func (a *Audio) State() StreamState {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.state
}

// Configure opens a session with default settings, as on
// SET_CONFIGURATION. A configured driver is stopped and reopened.
func (a *Audio) Configure() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.closed {
		return pkg.ErrClosed
	}
	if a.state == StateStreaming {
		_ = a.stopLocked()
		a.resetStreamInterface()
	}

	a.session = newSession(&a.cfg)
	a.control.reset()
	a.stats.reset()
	a.feedback.Reset(a.session.Rate)
	a.flush(a.cfg.OutEndpoint)
	a.flush(a.cfg.FeedbackEndpoint)
	a.state = StateStopped

	pkg.LogInfo(pkg.ComponentAudio, "audio function configured",
		"rate", a.session.Rate,
		"channels", a.session.Channels,
		"bitDepth", a.session.BitDepth(),
		"maxPacket", a.cfg.MaxPacket)
	return nil
}

// Deconfigure stops streaming and discards the session, as on bus reset or
// disconnect.
func (a *Audio) Deconfigure() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.deconfigureLocked()
}

func (a *Audio) deconfigureLocked() error {
	if a.state == StateIdle {
		return nil
	}

	var err error
	if a.state == StateStreaming {
		err = a.stopLocked()
		a.resetStreamInterface()
	}
	a.session = Session{}
	a.control.reset()
	a.state = StateIdle

	pkg.LogInfo(pkg.ComponentAudio, "audio function deconfigured")
	return err
}

// Init binds the driver to the control or streaming interface.
func (a *Audio) Init(iface *device.Interface) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	switch iface.SubClass {
	case device.AudioSubClassControl:
	case device.AudioSubClassStreaming:
		if iface.GetEndpoint(a.cfg.OutEndpoint) == nil || iface.GetEndpoint(a.cfg.FeedbackEndpoint) == nil {
			return fmt.Errorf("%w: streaming interface %d missing endpoints",
				pkg.ErrInvalidParameter, iface.Number)
		}
		a.streamIface = iface
	default:
		return fmt.Errorf("%w: audio subclass %d", pkg.ErrNotSupported, iface.SubClass)
	}

	pkg.LogDebug(pkg.ComponentAudio, "interface bound",
		"interface", iface.Number,
		"subClass", iface.SubClass)
	return nil
}

// HandleSetup processes class-specific requests for the feature unit and
// the streaming endpoint.
func (a *Audio) HandleSetup(iface *device.Interface, setup *device.SetupPacket, data []byte) (bool, error) {
	if !setup.IsClass() {
		return false, nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.state == StateIdle {
		return true, a.stall(setup, "not configured")
	}
	return a.handleClassRequest(setup)
}

// SetAlternate applies SET_INTERFACE. Only the streaming interface has an
// operational setting.
func (a *Audio) SetAlternate(iface *device.Interface, alt uint8) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if iface.SubClass != device.AudioSubClassStreaming {
		if alt != 0 {
			return fmt.Errorf("%w: alternate setting %d", pkg.ErrInvalidRequest, alt)
		}
		return nil
	}
	return a.setAlternateLocked(alt)
}

// Close stops the stream and releases the driver. Further calls are no-ops.
func (a *Audio) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	return a.deconfigureLocked()
}

// OnSOF advances the feedback window and the counter latch.
func (a *Audio) OnSOF() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.state == StateStreaming {
		a.feedback.Tick()
	}
	if a.stats.tick() && pkg.Enabled(slog.LevelDebug) {
		r := a.stats.snapshot()
		pkg.LogDebug(pkg.ComponentAudio, "event rates",
			"dataOut", r.DataOut,
			"dataIn", r.DataIn,
			"feedback", r.Feedback,
			"isoOutIncomplete", r.IsoOutIncomplete,
			"isoInIncomplete", r.IsoInIncomplete,
			"hostRate", a.stats.hostRate(a.session.FrameBytes(), a.cfg.Speed.FramesPerSecond()))
	}
}

// OnDataReady writes a received packet into the ring and re-arms the
// endpoint, whether or not the write succeeded.
func (a *Audio) OnDataReady(ep uint8, payload []byte) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if ep != a.cfg.OutEndpoint {
		return
	}
	a.stats.count(EventDataOut)
	a.ingest(payload)
	a.arm(ep)
}

// OnIsoOutIncomplete flushes and re-arms the OUT endpoint.
func (a *Audio) OnIsoOutIncomplete(ep uint8) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if ep != a.cfg.OutEndpoint {
		return
	}
	a.stats.count(EventIsoOutIncomplete)
	a.flush(ep)
	if a.state == StateStreaming {
		a.arm(ep)
	}
}

// OnFeedbackComplete updates the target when a window has elapsed and
// queues the next feedback value.
func (a *Audio) OnFeedbackComplete(ep uint8) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if ep != a.cfg.FeedbackEndpoint {
		return
	}
	a.stats.count(EventDataIn)
	if a.state != StateStreaming {
		return
	}
	if a.feedback.Due() {
		fill := a.out.BufferLevelPercent()
		a.session.LastFill = fill
		a.feedback.Update(fill)
	}
	a.sendFeedback()
}

// OnFeedbackIncomplete flushes the feedback endpoint and resends the last
// computed value immediately.
func (a *Audio) OnFeedbackIncomplete(ep uint8) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if ep != a.cfg.FeedbackEndpoint {
		return
	}
	a.stats.count(EventIsoInIncomplete)
	if a.state != StateStreaming {
		return
	}
	a.flush(ep)
	a.sendFeedback()
}

// OnControlDataStage applies the data stage of a staged SET_CUR.
func (a *Audio) OnControlDataStage(data []byte) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.applyDataStage(data)
}

func (a *Audio) sendFeedback() {
	if err := a.fn.Transmit(a.cfg.FeedbackEndpoint, a.feedback.Payload()); err != nil {
		pkg.LogWarn(pkg.ComponentFeedback, "feedback transmit failed", "error", err)
		return
	}
	a.stats.count(EventFeedback)
}

// Status returns a diagnostics snapshot.
func (a *Audio) Status() Status {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	fb := a.feedback.State()
	st := Status{
		State:          a.state,
		Control:        a.control.state,
		Rate:           a.session.Rate,
		BitDepth:       a.session.BitDepth(),
		Channels:       a.session.Channels,
		Muted:          a.session.Muted,
		VolumeCode:     a.session.VolumeCode,
		VolumePercent:  a.session.VolumePercent,
		BufferFill:     a.ring.FillPercent(),
		Overruns:       a.ring.Overruns(),
		Underruns:      a.ring.Underruns(),
		Rates:          a.stats.snapshot(),
		HostRateHz:     a.stats.hostRate(a.session.FrameBytes(), a.cfg.Speed.FramesPerSecond()),
		FeedbackTarget: fb.Target,
		FeedbackHz:     DecodeFeedback(fb.Target),
		RealRateHz:     fb.RealRate,
	}
	if zf, ok := a.out.(zeroFiller); ok {
		st.ZeroFills = zf.ZeroFills()
	}
	return st
}

// EventTotal returns the number of events of category c since creation.
func (a *Audio) EventTotal(c EventCategory) uint64 {
	return a.stats.total(c)
}

// Session returns a copy of the stream session.
func (a *Audio) Session() Session {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.session
}

// Feedback returns the feedback controller state.
func (a *Audio) Feedback() FeedbackState {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.feedback.State()
}

func (a *Audio) supportsRate(rate uint32) bool {
	return slices.Contains(a.cfg.Rates, rate)
}

func (a *Audio) minRate() uint32 { return slices.Min(a.cfg.Rates) }

func (a *Audio) maxRate() uint32 { return slices.Max(a.cfg.Rates) }
