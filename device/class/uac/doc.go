// Package uac implements a USB Audio Class 1.0 speaker function with
// asynchronous isochronous OUT streaming and explicit feedback.
//
// The driver is the input side of the pipeline. Isochronous packets from
// the host are written into an elastic ring buffer that the output
// scheduler drains at the DAC clock. Once per measurement window the
// feedback controller reads the buffer fill level and reports a corrected
// rate to the host over the feedback endpoint, so the host's average packet
// size tracks the output clock and the buffer settles at half full.
//
// # Stream Lifecycle
//
// The stream moves Idle to Stopped on [Audio.Configure] and between
// Stopped and Streaming on SET_INTERFACE for the streaming interface:
//
//	cfg := uac.DefaultConfig()
//	audio, err := uac.NewAudio(cfg, usbFunction, outputDevice, rb)
//	if err != nil {
//	    return err
//	}
//	config := device.NewConfiguration(1)
//	if err := audio.Attach(config); err != nil {
//	    return err
//	}
//	_ = audio.Configure()
//
// # Control Requests
//
// The feature unit answers GET_CUR/MIN/MAX/RES for mute and volume. The
// streaming endpoint answers the sampling frequency control. SET_CUR stages
// the request until [Audio.OnControlDataStage] delivers the data.
//
// # Feedback
//
// Feedback values are kHz with 16 fractional bits, sent on the wire as a
// 3-byte little-endian 10.14 samples-per-frame value:
//
//	encoded := uac.EncodeFeedback(47810) // 3133276
//	uac.PutFeedback(buf, encoded)        // D7 F3 0B
package uac
