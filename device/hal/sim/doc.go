// Package sim provides software implementations of the hal interfaces for
// running the audio pipeline without hardware.
//
// [Host] plays the role of a full-speed USB host: it answers the class
// driver's endpoint primitives and drives its events one frame at a time,
// sizing each OUT packet from the feedback value so that its mean rate
// follows the function's clock. [Transport] drains the circular output
// buffer on a ticker whose clock can be skewed in parts per million, and
// [Codec] records what the output path asks of the DAC.
//
// Wiring a complete pipeline:
//
//	transport := sim.NewTransport(sim.WithClockPPM(-80))
//	sched, _ := output.NewScheduler(transport, rb, schedCfg)
//	out := output.NewDevice(sched, sim.NewCodec(), 24)
//
//	host := sim.NewHost(hostCfg, configuration)
//	audio, _ := uac.NewAudio(cfg, host, out, rb)
//	host.Attach(audio)
//
//	_ = audio.Configure()
//	_ = host.SetInterface(1)
//	go host.Run(ctx)
package sim
