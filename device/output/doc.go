// Package output implements the double-buffered audio output path.
//
// A [Scheduler] owns a buffer split into two segments and runs a
// [hal.Transport] over it circularly. Each time the transport finishes a
// segment, the scheduler refills that segment from a [ring.Buffer], or with
// silence when the ring runs short. A [Device] composes the scheduler with
// a [hal.Codec] into the [hal.OutputDevice] the class driver uses.
//
// Sample-rate changes follow a fixed order: stop the transfer, empty the
// ring, reconfigure the transport, recompute the segment length, restart.
// The transport is never reconfigured while a transfer is in flight.
//
// # Example
//
//	rb, _ := ring.New(4800, 6)
//	sched, _ := output.NewScheduler(transport, rb, output.SchedulerConfig{
//	    SegmentMs:    4,
//	    Channels:     2,
//	    SubslotBytes: 3,
//	})
//	dev := output.NewDevice(sched, codec, 24)
//	dev.Init(48000, 80)
package output
