package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ardnew/softdac/device/output"
	"github.com/ardnew/softdac/pkg"
)

// Config is the complete runtime configuration.
type Config struct {
	Stream    Stream    `mapstructure:"stream" yaml:"stream"`
	Ring      Ring      `mapstructure:"ring" yaml:"ring"`
	Output    Output    `mapstructure:"output" yaml:"output"`
	Feedback  Feedback  `mapstructure:"feedback" yaml:"feedback"`
	Volume    Volume    `mapstructure:"volume" yaml:"volume"`
	Log       Log       `mapstructure:"log" yaml:"log"`
	Telemetry Telemetry `mapstructure:"telemetry" yaml:"telemetry"`
}

// Stream is the USB stream format.
type Stream struct {
	Rate      uint32   `mapstructure:"rate" yaml:"rate"`
	Rates     []uint32 `mapstructure:"rates" yaml:"rates"`
	BitDepth  uint8    `mapstructure:"bit_depth" yaml:"bit_depth"` // Subslot width in bits
	Channels  uint8    `mapstructure:"channels" yaml:"channels"`
	MaxPacket uint16   `mapstructure:"max_packet" yaml:"max_packet"` // 0 derives it
}

// SubslotBytes returns the sample container size.
func (s Stream) SubslotBytes() uint8 {
	return s.BitDepth / 8
}

// FrameBytes returns the size of one interleaved frame.
func (s Stream) FrameBytes() int {
	return int(s.SubslotBytes()) * int(s.Channels)
}

// Ring sizes the elastic buffer.
type Ring struct {
	CapacityMs uint32 `mapstructure:"capacity_ms" yaml:"capacity_ms"`
}

// Frames returns the ring capacity in frames at the highest rate.
func (r Ring) Frames(rate uint32) int {
	return int(uint64(rate) * uint64(r.CapacityMs) / 1000)
}

// Output backends.
const (
	BackendSim = "sim"
	BackendOto = "oto"

	CodecSim   = "sim"
	CodecPulse = "pulse"
)

// Output selects and tunes the output path.
type Output struct {
	SegmentMs   uint32        `mapstructure:"segment_ms" yaml:"segment_ms"`
	Backend     string        `mapstructure:"backend" yaml:"backend"`
	ClockPPM    float64       `mapstructure:"clock_ppm" yaml:"clock_ppm"`
	Buffer      time.Duration `mapstructure:"buffer" yaml:"buffer"`
	Codec       string        `mapstructure:"codec" yaml:"codec"`
	PulseServer string        `mapstructure:"pulse_server" yaml:"pulse_server"`
}

// RealRate is a measured output clock for a nominal rate.
type RealRate struct {
	Nominal  uint32 `mapstructure:"nominal" yaml:"nominal"`
	Measured uint32 `mapstructure:"measured" yaml:"measured"`
}

// Feedback tunes the clock feedback loop.
type Feedback struct {
	BiasHz       uint32     `mapstructure:"bias_hz" yaml:"bias_hz"`
	WindowFrames uint32     `mapstructure:"window_frames" yaml:"window_frames"`
	RealRates    []RealRate `mapstructure:"real_rates" yaml:"real_rates"`
}

// RealRateMap returns the measured clock table keyed by nominal rate.
func (f Feedback) RealRateMap() map[uint32]uint32 {
	m := make(map[uint32]uint32, len(f.RealRates))
	for _, r := range f.RealRates {
		m[r.Nominal] = r.Measured
	}
	return m
}

// Volume is the feature unit volume range in dB.
type Volume struct {
	MinDB     float64 `mapstructure:"min_db" yaml:"min_db"`
	MaxDB     float64 `mapstructure:"max_db" yaml:"max_db"`
	StepDB    float64 `mapstructure:"step_db" yaml:"step_db"`
	DefaultDB float64 `mapstructure:"default_db" yaml:"default_db"`
}

// Codes returns the range as UAC 1/256 dB codes.
func (v Volume) Codes() (lo, hi, res, def int16) {
	return dbCode(v.MinDB), dbCode(v.MaxDB), dbCode(v.StepDB), dbCode(v.DefaultDB)
}

func dbCode(db float64) int16 {
	return int16(math.Round(db * 256))
}

// Log formats and backends.
const (
	FormatText = "text"
	FormatJSON = "json"

	LoggerSlog = "slog"
	LoggerZap  = "zap"
)

// Log configures logging.
type Log struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"`
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// Telemetry configures the metrics endpoint and status reporting.
type Telemetry struct {
	Listen         string        `mapstructure:"listen" yaml:"listen"` // Empty disables the server
	StatusInterval time.Duration `mapstructure:"status_interval" yaml:"status_interval"`
}

// Default returns the built-in configuration: 48 kHz stereo 24-bit, a
// 40 ms ring, the simulated output path and warn-level text logging.
func Default() Config {
	return Config{
		Stream: Stream{
			Rate:     48000,
			Rates:    slices.Clone(output.SupportedRates[:]),
			BitDepth: 24,
			Channels: 2,
		},
		Ring: Ring{CapacityMs: 40},
		Output: Output{
			SegmentMs: 4,
			Backend:   BackendSim,
			Buffer:    20 * time.Millisecond,
			Codec:     CodecSim,
		},
		Feedback: Feedback{
			BiasHz:       100,
			WindowFrames: 1,
			RealRates: []RealRate{
				{Nominal: 44100, Measured: 44133},
				{Nominal: 48000, Measured: 47810},
				{Nominal: 96000, Measured: 95621},
			},
		},
		Volume: Volume{
			MinDB:     -96,
			MaxDB:     0,
			StepDB:    3,
			DefaultDB: -96,
		},
		Log: Log{
			Level:   "warn",
			Format:  FormatText,
			Backend: LoggerSlog,
		},
		Telemetry: Telemetry{
			StatusInterval: 5 * time.Second,
		},
	}
}

// Validate checks every section and returns all problems found.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{pkg.ErrInvalidParameter}, args...)...))
	}

	s := c.Stream
	if len(s.Rates) == 0 || !slices.Contains(s.Rates, s.Rate) {
		add("stream.rate %d not in stream.rates %v", s.Rate, s.Rates)
	}
	for _, r := range s.Rates {
		if !output.IsSupportedRate(r) {
			add("stream.rates entry %d not supported by output", r)
		}
	}
	switch s.BitDepth {
	case 16, 24, 32:
	default:
		add("stream.bit_depth %d", s.BitDepth)
	}
	if s.Channels == 0 || s.Channels > 8 {
		add("stream.channels %d", s.Channels)
	}
	if c.Ring.CapacityMs < 2*c.Output.SegmentMs {
		add("ring.capacity_ms %d below two segments", c.Ring.CapacityMs)
	}
	if c.Output.SegmentMs == 0 || c.Output.SegmentMs > 100 {
		add("output.segment_ms %d", c.Output.SegmentMs)
	}
	if c.Output.Backend != BackendSim && c.Output.Backend != BackendOto {
		add("output.backend %q", c.Output.Backend)
	}
	if c.Output.Codec != CodecSim && c.Output.Codec != CodecPulse {
		add("output.codec %q", c.Output.Codec)
	}
	if math.Abs(c.Output.ClockPPM) >= 1e5 {
		add("output.clock_ppm %g", c.Output.ClockPPM)
	}
	if c.Feedback.BiasHz < 1 || c.Feedback.BiasHz > 1000 {
		add("feedback.bias_hz %d outside [1, 1000]", c.Feedback.BiasHz)
	}
	for _, r := range c.Feedback.RealRates {
		if r.Nominal == 0 || r.Measured == 0 {
			add("feedback.real_rates entry %+v", r)
		}
	}

	v := c.Volume
	lo, hi, res, def := v.Codes()
	if v.MinDB < -127 || v.MaxDB > 127 || lo >= hi {
		add("volume range [%g, %g] dB", v.MinDB, v.MaxDB)
	}
	if res <= 0 {
		add("volume.step_db %g", v.StepDB)
	}
	if def < lo || def > hi {
		add("volume.default_db %g outside range", v.DefaultDB)
	}

	if _, err := pkg.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != FormatText && c.Log.Format != FormatJSON {
		add("log.format %q", c.Log.Format)
	}
	if c.Log.Backend != LoggerSlog && c.Log.Backend != LoggerZap {
		add("log.backend %q", c.Log.Backend)
	}
	if c.Telemetry.StatusInterval < 0 {
		add("telemetry.status_interval %v", c.Telemetry.StatusInterval)
	}

	return errors.Join(errs...)
}

// setDefaults registers Default() with v so absent keys keep their
// built-in values.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("stream.rate", d.Stream.Rate)
	v.SetDefault("stream.rates", d.Stream.Rates)
	v.SetDefault("stream.bit_depth", d.Stream.BitDepth)
	v.SetDefault("stream.channels", d.Stream.Channels)
	v.SetDefault("stream.max_packet", d.Stream.MaxPacket)
	v.SetDefault("ring.capacity_ms", d.Ring.CapacityMs)
	v.SetDefault("output.segment_ms", d.Output.SegmentMs)
	v.SetDefault("output.backend", d.Output.Backend)
	v.SetDefault("output.clock_ppm", d.Output.ClockPPM)
	v.SetDefault("output.buffer", d.Output.Buffer)
	v.SetDefault("output.codec", d.Output.Codec)
	v.SetDefault("output.pulse_server", d.Output.PulseServer)
	v.SetDefault("feedback.bias_hz", d.Feedback.BiasHz)
	v.SetDefault("feedback.window_frames", d.Feedback.WindowFrames)
	v.SetDefault("feedback.real_rates", realRateMaps(d.Feedback.RealRates))
	v.SetDefault("volume.min_db", d.Volume.MinDB)
	v.SetDefault("volume.max_db", d.Volume.MaxDB)
	v.SetDefault("volume.step_db", d.Volume.StepDB)
	v.SetDefault("volume.default_db", d.Volume.DefaultDB)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.backend", d.Log.Backend)
	v.SetDefault("telemetry.listen", d.Telemetry.Listen)
	v.SetDefault("telemetry.status_interval", d.Telemetry.StatusInterval)
}

func realRateMaps(rates []RealRate) []map[string]any {
	out := make([]map[string]any, len(rates))
	for i, r := range rates {
		out[i] = map[string]any{"nominal": r.Nominal, "measured": r.Measured}
	}
	return out
}

// decode unmarshals v into a Config, rejecting unknown keys.
func decode(v *viper.Viper) (Config, error) {
	var c Config
	err := v.Unmarshal(&c, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.ErrorUnused = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}
