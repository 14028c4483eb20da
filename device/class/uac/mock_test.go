package uac

import (
	"testing"

	"github.com/ardnew/softdac/device"
	"github.com/ardnew/softdac/pkg/ring"
)

type receive struct {
	ep   uint8
	size int
}

type transmit struct {
	ep   uint8
	data []byte
}

// mockFunction records every call the driver makes on the USB function.
type mockFunction struct {
	receives    []receive
	transmits   []transmit
	flushes     []uint8
	controls    [][]byte
	controlRx   []int
	stalls      int
	transmitErr error
}

func (m *mockFunction) PrepareReceive(ep uint8, size int) error {
	m.receives = append(m.receives, receive{ep, size})
	return nil
}

func (m *mockFunction) Transmit(ep uint8, data []byte) error {
	if m.transmitErr != nil {
		return m.transmitErr
	}
	m.transmits = append(m.transmits, transmit{ep, append([]byte(nil), data...)})
	return nil
}

func (m *mockFunction) Flush(ep uint8) error {
	m.flushes = append(m.flushes, ep)
	return nil
}

func (m *mockFunction) SendControl(data []byte) error {
	m.controls = append(m.controls, append([]byte(nil), data...))
	return nil
}

func (m *mockFunction) PrepareControlReceive(n int) error {
	m.controlRx = append(m.controlRx, n)
	return nil
}

func (m *mockFunction) StallControl() error {
	m.stalls++
	return nil
}

func (m *mockFunction) lastTransmit() transmit {
	if len(m.transmits) == 0 {
		return transmit{}
	}
	return m.transmits[len(m.transmits)-1]
}

func (m *mockFunction) lastControl() []byte {
	if len(m.controls) == 0 {
		return nil
	}
	return m.controls[len(m.controls)-1]
}

func (m *mockFunction) flushed(ep uint8) int {
	n := 0
	for _, f := range m.flushes {
		if f == ep {
			n++
		}
	}
	return n
}

func (m *mockFunction) clear() {
	m.receives = nil
	m.transmits = nil
	m.flushes = nil
	m.controls = nil
	m.controlRx = nil
	m.stalls = 0
}

// mockOutput records output device calls.
type mockOutput struct {
	inits     []uint32
	volumes   []uint8
	mutes     []bool
	deinits   int
	fill      uint8
	zeroFills uint64
	initErr   error
	running   bool
}

func (m *mockOutput) Init(rate uint32, volumePercent uint8) error {
	m.inits = append(m.inits, rate)
	m.volumes = append(m.volumes, volumePercent)
	if m.initErr != nil {
		m.running = false
		return m.initErr
	}
	m.running = true
	return nil
}

func (m *mockOutput) DeInit() error {
	m.deinits++
	m.running = false
	return nil
}

func (m *mockOutput) SetVolumePercent(percent uint8) error {
	m.volumes = append(m.volumes, percent)
	return nil
}

func (m *mockOutput) SetMute(mute bool) error {
	m.mutes = append(m.mutes, mute)
	return nil
}

func (m *mockOutput) BufferLevelPercent() uint8 { return m.fill }

func (m *mockOutput) ZeroFills() uint64 { return m.zeroFills }

func (m *mockOutput) lastMute() bool {
	if len(m.mutes) == 0 {
		return false
	}
	return m.mutes[len(m.mutes)-1]
}

// rig is a configured audio function bound to its interfaces.
type rig struct {
	audio  *Audio
	fn     *mockFunction
	out    *mockOutput
	ring   *ring.Buffer
	config *device.Configuration
	stream *device.Interface
}

func newRig(t *testing.T, modify func(*Config)) *rig {
	t.Helper()

	cfg := DefaultConfig()
	if modify != nil {
		modify(&cfg)
	}

	rb, err := ring.New(480, int(cfg.Channels)*int(cfg.SubslotBytes))
	if err != nil {
		t.Fatalf("ring.New() error = %v", err)
	}

	fn := &mockFunction{}
	out := &mockOutput{fill: 50}
	audio, err := NewAudio(cfg, fn, out, rb)
	if err != nil {
		t.Fatalf("NewAudio() error = %v", err)
	}

	control := device.NewInterface(cfg.ControlInterface, device.AudioSubClassControl, 1)
	stream := device.NewInterface(cfg.StreamingInterface, device.AudioSubClassStreaming, 2)
	_ = stream.AddEndpoint(device.NewIsoEndpoint(cfg.OutEndpoint,
		device.IsoSyncAsync, device.IsoUsageData, audio.Config().MaxPacket, 1))
	_ = stream.AddEndpoint(device.NewIsoEndpoint(cfg.FeedbackEndpoint,
		device.IsoSyncNone, device.IsoUsageFeedback, FeedbackSize, 1))

	config := device.NewConfiguration(1)
	if err := config.AddInterface(control); err != nil {
		t.Fatalf("AddInterface(control) error = %v", err)
	}
	if err := config.AddInterface(stream); err != nil {
		t.Fatalf("AddInterface(stream) error = %v", err)
	}
	if err := control.SetClassDriver(audio); err != nil {
		t.Fatalf("SetClassDriver(control) error = %v", err)
	}
	if err := stream.SetClassDriver(audio); err != nil {
		t.Fatalf("SetClassDriver(stream) error = %v", err)
	}
	if err := audio.Configure(); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	fn.clear()

	return &rig{
		audio:  audio,
		fn:     fn,
		out:    out,
		ring:   rb,
		config: config,
		stream: stream,
	}
}

func (r *rig) setAlt(t *testing.T, alt uint8) error {
	t.Helper()
	var setup device.SetupPacket
	device.GetSetInterfaceSetup(&setup, r.stream.Number, alt)
	_, err := r.config.HandleSetup(&setup, nil)
	return err
}

func (r *rig) start(t *testing.T) {
	t.Helper()
	if err := r.setAlt(t, AltStreaming); err != nil {
		t.Fatalf("SET_INTERFACE(1) error = %v", err)
	}
	r.fn.clear()
}

func (r *rig) featureRequest(request, selector uint8, length uint16) (bool, error) {
	cfg := r.audio.Config()
	var setup device.SetupPacket
	device.ClassInterfaceSetup(&setup, request, selector, 0, cfg.FeatureUnitID, cfg.ControlInterface, length)
	return r.config.HandleSetup(&setup, nil)
}

func (r *rig) endpointRequest(request, selector uint8, length uint16) (bool, error) {
	var setup device.SetupPacket
	device.ClassEndpointSetup(&setup, request, selector, r.audio.Config().OutEndpoint, length)
	return r.config.HandleSetup(&setup, nil)
}

// setCur runs a complete SET_CUR: setup stage then data stage.
func (r *rig) setCur(t *testing.T, endpoint bool, selector uint8, data []byte) error {
	t.Helper()
	var err error
	if endpoint {
		_, err = r.endpointRequest(RequestSetCur, selector, uint16(len(data)))
	} else {
		_, err = r.featureRequest(RequestSetCur, selector, uint16(len(data)))
	}
	if err != nil {
		return err
	}
	return r.audio.OnControlDataStage(data)
}
