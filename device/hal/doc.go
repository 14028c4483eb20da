// Package hal defines the hardware abstraction boundary of the audio
// pipeline.
//
// The class driver never touches hardware directly. It consumes four
// capabilities and exposes one event surface:
//
//   - [AudioFunction]: USB endpoint primitives (arm, transmit, flush, EP0)
//   - [Transport]: a circular output transfer reporting half/full completion
//   - [Codec]: DAC configuration, volume and mute
//   - [OutputDevice]: the composed output path the class driver starts and
//     stops
//   - [AudioEvents]: SOF, data-ready, feedback and control events delivered
//     by the HAL on its input flow
//
// # Execution Flows
//
// Events arrive on two independent flows. The input flow calls
// [AudioEvents] methods from one goroutine. The output flow calls the
// [SegmentHandler] passed to [Transport.StartCircular] from another. Neither
// flow may block.
//
// # Backends
//
//   - [github.com/ardnew/softdac/device/hal/sim]: software transport, codec
//     and USB host, clock skew configurable
//   - [github.com/ardnew/softdac/device/hal/oto]: transport playing through
//     the system audio device
//   - [github.com/ardnew/softdac/device/hal/pulse]: codec controlling a
//     PulseAudio sink
//
// # Example
//
//	type LoopTransport struct{ /* ... */ }
//
//	func (t *LoopTransport) StartCircular(buf []byte, onSegment hal.SegmentHandler) error {
//	    // start the peripheral, call onSegment(hal.SegmentHalf) and
//	    // onSegment(hal.SegmentFull) as each half drains
//	    return nil
//	}
package hal
