package device

import "fmt"

// Maximum limits for fixed-size arrays (zero-allocation support).
const (
	// MaxEndpointsPerInterface is the maximum number of endpoints per interface.
	MaxEndpointsPerInterface = 4

	// MaxInterfacesPerConfiguration is the maximum number of interfaces an
	// audio function groups together.
	MaxInterfacesPerConfiguration = 4

	// ControlMaxPacketSize is the EP0 packet size used by the audio function.
	// Class request data stages never exceed it.
	ControlMaxPacketSize = 64
)

// Interface class codes used by the audio function.
const (
	ClassAudio = 0x01 // Audio

	AudioSubClassControl   = 0x01 // AudioControl
	AudioSubClassStreaming = 0x02 // AudioStreaming
)

// USB Speeds as defined in USB 2.0 specification.
const (
	SpeedFull Speed = 1 // 12 Mbps (USB 1.1)
	SpeedHigh Speed = 2 // 480 Mbps (USB 2.0)
)

// Speed represents USB connection speed.
type Speed uint8

// String returns a human-readable speed description.
func (s Speed) String() string {
	switch s {
	case SpeedFull:
		return "Full Speed (12 Mbps)"
	case SpeedHigh:
		return "High Speed (480 Mbps)"
	default:
		return fmt.Sprintf("Unknown Speed (%d)", s)
	}
}

// FramesPerSecond returns the SOF rate at this speed: frames at full speed,
// microframes at high speed.
func (s Speed) FramesPerSecond() uint32 {
	if s == SpeedHigh {
		return 8000
	}
	return 1000
}
