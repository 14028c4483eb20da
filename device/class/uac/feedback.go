package uac

import (
	"log/slog"

	"github.com/ardnew/softdac/pkg"
)

// FeedbackSize is the length of the feedback endpoint payload.
const FeedbackSize = 3

// EncodeFeedback converts a rate in Hz to the feedback value in kHz with 16
// fractional bits: round(rate * 2^13 / 125).
func EncodeFeedback(rateHz uint32) uint32 {
	return uint32((uint64(rateHz)<<13 + 62) / 125)
}

// DecodeFeedback converts an encoded feedback value back to Hz, rounded.
func DecodeFeedback(encoded uint32) uint32 {
	return uint32((uint64(encoded)*125 + 1<<12) >> 13)
}

// PutFeedback writes the 3-byte little-endian 10.14 samples-per-frame
// payload for an encoded value into buf. buf must hold FeedbackSize bytes.
func PutFeedback(buf []byte, encoded uint32) {
	v := encoded >> 2
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
}

// ParseFeedback reads a 10.14 payload and returns the samples per frame
// value with 14 fractional bits.
func ParseFeedback(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
}

// defaultRealRates are the measured output clock rates of the reference
// oscillator for the rates it was characterized at.
var defaultRealRates = map[uint32]uint32{
	44100: 44133,
	48000: 47810,
	96000: 95621,
}

// FeedbackState is the feedback controller's view of the stream.
type FeedbackState struct {
	Nominal  uint32 // Encoded feedback at the real clock rate
	Target   uint32 // Encoded value currently reported
	RealRate uint32 // Measured output clock rate in Hz
	BiasHz   uint32 // Correction applied off the half-full point
	LastFill uint8  // Buffer fill percent seen at the last update
}

// FeedbackController computes the corrected rate reported to the host so
// the elastic buffer converges on half full.
type FeedbackController struct {
	state     FeedbackState
	realRates map[uint32]uint32
	window    uint32 // SOF ticks per measurement window
	frames    uint32 // SOF ticks since the last update

	payload [FeedbackSize]byte
}

// NewFeedbackController creates a controller. biasHz is clamped to
// [MinBiasHz, MaxBiasHz]. realRates overrides or extends the built-in clock
// table. windowFrames of 0 updates on every feedback completion.
func NewFeedbackController(biasHz, windowFrames uint32, realRates map[uint32]uint32) *FeedbackController {
	table := make(map[uint32]uint32, len(defaultRealRates)+len(realRates))
	for k, v := range defaultRealRates {
		table[k] = v
	}
	for k, v := range realRates {
		if v != 0 {
			table[k] = v
		}
	}
	return &FeedbackController{
		state:     FeedbackState{BiasHz: max(MinBiasHz, min(biasHz, MaxBiasHz))},
		realRates: table,
		window:    windowFrames,
	}
}

// RealRate returns the measured output clock for a nominal rate, or the
// nominal rate when the clock was never characterized at it.
func (f *FeedbackController) RealRate(rate uint32) uint32 {
	if real, ok := f.realRates[rate]; ok {
		return real
	}
	return rate
}

// Reset recomputes the nominal value for rate and reports it until the
// next update.
func (f *FeedbackController) Reset(rate uint32) {
	f.state.RealRate = f.RealRate(rate)
	f.state.Nominal = EncodeFeedback(f.state.RealRate)
	f.state.Target = f.state.Nominal
	f.state.LastFill = 50
	f.frames = 0
	f.encodeTarget()
}

// Tick counts one SOF.
func (f *FeedbackController) Tick() {
	f.frames++
}

// Due reports whether a measurement window has elapsed.
func (f *FeedbackController) Due() bool {
	return f.frames >= f.window
}

// Update recomputes the target from the buffer fill percent and starts a
// new window. Above half full the host is asked for fewer samples, below
// half full for more; exactly half full reports the nominal value.
func (f *FeedbackController) Update(fill uint8) uint32 {
	f.frames = 0
	f.state.LastFill = fill

	prev := f.state.Target
	switch {
	case fill > 50:
		f.state.Target = EncodeFeedback(f.state.RealRate - f.state.BiasHz)
	case fill < 50:
		f.state.Target = EncodeFeedback(f.state.RealRate + f.state.BiasHz)
	default:
		f.state.Target = f.state.Nominal
	}
	f.encodeTarget()

	if f.state.Target != prev && pkg.Enabled(slog.LevelDebug) {
		pkg.LogDebug(pkg.ComponentFeedback, "feedback target changed",
			"fill", fill,
			"targetHz", DecodeFeedback(f.state.Target))
	}
	return f.state.Target
}

// Payload returns the wire encoding of the current target. The slice is
// reused by the next Update or Reset.
func (f *FeedbackController) Payload() []byte {
	return f.payload[:]
}

// State returns a copy of the controller state.
func (f *FeedbackController) State() FeedbackState {
	return f.state
}

func (f *FeedbackController) encodeTarget() {
	PutFeedback(f.payload[:], f.state.Target)
}
