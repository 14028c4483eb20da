package hal

// Segment identifies which half of a circular output buffer the hardware
// has just finished playing.
type Segment uint8

// Segment completion events of a circular transfer.
const (
	SegmentHalf Segment = iota // First half played (half-transfer complete)
	SegmentFull                // Second half played (transfer complete)
)

// String returns a human-readable segment name.
func (s Segment) String() string {
	if s == SegmentFull {
		return "full"
	}
	return "half"
}

// Index returns the buffer half that is now free to refill: 0 for
// [SegmentHalf], 1 for [SegmentFull].
func (s Segment) Index() int {
	if s == SegmentFull {
		return 1
	}
	return 0
}

// SegmentHandler receives segment completion events. It runs on the
// transport's output flow and must not block.
type SegmentHandler func(seg Segment)

// Transport drives a circular output transfer over a caller-owned buffer,
// the equivalent of a DMA stream feeding an I2S peripheral.
type Transport interface {
	// Configure sets output timing. It must only be called while stopped.
	Configure(rate uint32, channels, subslotBytes uint8) error

	// StartCircular begins playing buf in a loop, calling onSegment after
	// each half has been consumed. The transport reads buf in place.
	StartCircular(buf []byte, onSegment SegmentHandler) error

	// Stop halts the transfer. After Stop returns no further segment
	// events are delivered.
	Stop() error
}

// Codec is the external DAC control surface. The register protocol behind
// it is out of scope.
type Codec interface {
	// Configure prepares the codec for the given rate and bit depth.
	Configure(rate uint32, bitDepth uint8) error

	// SetVolume sets output volume, 0 to 100.
	SetVolume(percent uint8) error

	// SetMute mutes or unmutes the output.
	SetMute(mute bool) error
}

// OutputDevice is the output capability consumed by the audio class driver.
type OutputDevice interface {
	// Init starts output at rate with the given volume.
	Init(rate uint32, volumePercent uint8) error

	// DeInit stops output.
	DeInit() error

	// SetVolumePercent sets output volume, 0 to 100.
	SetVolumePercent(percent uint8) error

	// SetMute mutes or unmutes the output.
	SetMute(mute bool) error

	// BufferLevelPercent returns the elastic buffer fill level, 0 to 100.
	BufferLevelPercent() uint8
}

// AudioFunction is the USB controller surface used by the audio class
// driver. Every method is non-blocking.
type AudioFunction interface {
	// PrepareReceive arms the OUT endpoint ep for one packet of up to size
	// bytes. Delivery is reported through [AudioEvents.OnDataReady].
	PrepareReceive(ep uint8, size int) error

	// Transmit queues data on the IN endpoint ep. The HAL copies data
	// before returning.
	Transmit(ep uint8, data []byte) error

	// Flush discards any packet pending on ep.
	Flush(ep uint8) error

	// SendControl sends the data stage of a device-to-host control request.
	SendControl(data []byte) error

	// PrepareControlReceive arms EP0 for an n byte OUT data stage, reported
	// through [AudioEvents.OnControlDataStage].
	PrepareControlReceive(n int) error

	// StallControl stalls EP0 to reject the current request.
	StallControl() error
}

// AudioEvents is the event surface a HAL delivers to the audio class driver
// on its input flow. Handlers complete in bounded time.
type AudioEvents interface {
	// OnSOF is called once per USB (micro)frame.
	OnSOF()

	// OnDataReady delivers a received isochronous OUT packet. payload is
	// only valid for the duration of the call.
	OnDataReady(ep uint8, payload []byte)

	// OnIsoOutIncomplete reports an isochronous OUT frame with no packet.
	OnIsoOutIncomplete(ep uint8)

	// OnFeedbackComplete reports that the feedback value was delivered.
	OnFeedbackComplete(ep uint8)

	// OnFeedbackIncomplete reports a missed feedback delivery.
	OnFeedbackIncomplete(ep uint8)

	// OnControlDataStage delivers the OUT data stage armed by
	// [AudioFunction.PrepareControlReceive].
	OnControlDataStage(data []byte) error
}
