package config

import (
	"log/slog"
	"slices"

	"github.com/ardnew/softdac/device/class/uac"
	"github.com/ardnew/softdac/device/output"
	"github.com/ardnew/softdac/pkg"
)

// AudioConfig returns the class driver configuration. Interface and
// endpoint layout keep the uac defaults.
func (c Config) AudioConfig() uac.Config {
	ac := uac.DefaultConfig()
	ac.Rate = c.Stream.Rate
	ac.Rates = slices.Clone(c.Stream.Rates)
	ac.Channels = c.Stream.Channels
	ac.SubslotBytes = c.Stream.SubslotBytes()
	ac.MaxPacket = c.Stream.MaxPacket

	lo, hi, res, def := c.Volume.Codes()
	ac.Volume = uac.VolumeRange{Min: lo, Max: hi, Res: res}
	ac.DefaultVolume = def

	ac.BiasHz = c.Feedback.BiasHz
	ac.WindowFrames = c.Feedback.WindowFrames
	if len(c.Feedback.RealRates) > 0 {
		ac.RealRates = c.Feedback.RealRateMap()
	}
	return ac
}

// SchedulerConfig returns the output scheduler format.
func (c Config) SchedulerConfig() output.SchedulerConfig {
	return output.SchedulerConfig{
		SegmentMs:    c.Output.SegmentMs,
		Channels:     c.Stream.Channels,
		SubslotBytes: c.Stream.SubslotBytes(),
	}
}

// RingFrames returns the ring capacity in frames, sized for the highest
// settable rate.
func (c Config) RingFrames() int {
	return c.Ring.Frames(slices.Max(c.Stream.Rates))
}

// LogLevel returns the parsed log level. Validate has already rejected
// bad names, so errors fall back to warn.
func (c Config) LogLevel() slog.Level {
	level, err := pkg.ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}
