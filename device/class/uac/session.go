package uac

// Session is the per-configuration stream state shared by the stream and
// control state machines.
type Session struct {
	Alt           uint8  // Streaming interface alternate setting
	Rate          uint32 // Configured sample rate in Hz
	SubslotBytes  uint8  // Bytes per sample on the wire
	Channels      uint8  // Interleaved channels
	VolumeCode    int16  // Feature unit volume, 1/256 dB
	VolumePercent uint8  // Volume forwarded to the output device
	Muted         bool   // Feature unit mute
	LastFill      uint8  // Buffer fill percent at the last feedback update
}

// BitDepth returns the sample width in bits.
func (s *Session) BitDepth() uint8 {
	return s.SubslotBytes * 8
}

// FrameBytes returns the size of one interleaved frame.
func (s *Session) FrameBytes() int {
	return int(s.SubslotBytes) * int(s.Channels)
}

func newSession(cfg *Config) Session {
	vol := cfg.Volume.Clamp(cfg.DefaultVolume)
	return Session{
		Rate:          cfg.Rate,
		SubslotBytes:  cfg.SubslotBytes,
		Channels:      cfg.Channels,
		VolumeCode:    vol,
		VolumePercent: cfg.Volume.Percent(vol),
		LastFill:      50,
	}
}
