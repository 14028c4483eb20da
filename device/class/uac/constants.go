package uac

// Class-specific request codes (UAC 1.0 Table A-9).
const (
	RequestSetCur = 0x01
	RequestSetMin = 0x02
	RequestSetMax = 0x03
	RequestSetRes = 0x04
	RequestGetCur = 0x81
	RequestGetMin = 0x82
	RequestGetMax = 0x83
	RequestGetRes = 0x84
)

// Feature unit control selectors (UAC 1.0 Table A-11).
const (
	SelectorMute   = 0x01
	SelectorVolume = 0x02
)

// Endpoint control selectors (UAC 1.0 Table A-19).
const (
	SelectorSamplingFreq = 0x01
	SelectorPitch        = 0x02
)

// Control payload sizes in bytes.
const (
	MuteSize         = 1
	VolumeSize       = 2
	SamplingFreqSize = 3
)

// MaxControlData is the largest SET_CUR data stage accepted (EP0 packet).
const MaxControlData = 64

// Default function layout.
const (
	DefaultControlInterface   = 0
	DefaultStreamingInterface = 1
	DefaultFeatureUnitID      = 0x02
	DefaultOutEndpoint        = 0x01
	DefaultFeedbackEndpoint   = 0x81
)

// Default stream format: 48 kHz, stereo, 24-bit samples in 3-byte subslots.
const (
	DefaultRate         = 48000
	DefaultChannels     = 2
	DefaultSubslotBytes = 3
)

// Alternate settings of the streaming interface.
const (
	AltIdle      = 0 // zero bandwidth
	AltStreaming = 1 // operational
)

// DefaultBiasHz is the feedback correction applied when the buffer drifts off
// half full.
const DefaultBiasHz = 100

// Bias limits in Hz.
const (
	MinBiasHz = 1
	MaxBiasHz = 1000
)

// StatsWindowFrames is the number of SOF ticks per counter latch period at
// full speed.
const StatsWindowFrames = 1000
