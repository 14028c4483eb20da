package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardnew/softdac/pkg"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "softdac.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if c.Stream.Rate != 48000 {
		t.Errorf("Stream.Rate = %d, want 48000", c.Stream.Rate)
	}
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
stream:
  rate: 44100
  bit_depth: 16
output:
  buffer: 40ms
feedback:
  bias_hz: 50
  real_rates:
    - nominal: 44100
      measured: 44120
volume:
  default_db: -12
log:
  level: debug
  backend: zap
telemetry:
  listen: ":9100"
  status_interval: 2s
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if c.Stream.Rate != 44100 {
		t.Errorf("Stream.Rate = %d, want 44100", c.Stream.Rate)
	}
	if c.Stream.SubslotBytes() != 2 {
		t.Errorf("SubslotBytes() = %d, want 2", c.Stream.SubslotBytes())
	}
	if c.Stream.Channels != 2 {
		t.Errorf("Stream.Channels = %d, want default 2", c.Stream.Channels)
	}
	if c.Output.Buffer != 40*time.Millisecond {
		t.Errorf("Output.Buffer = %v, want 40ms", c.Output.Buffer)
	}
	if c.Output.Backend != BackendSim {
		t.Errorf("Output.Backend = %q, want %q", c.Output.Backend, BackendSim)
	}
	if c.Feedback.BiasHz != 50 {
		t.Errorf("Feedback.BiasHz = %d, want 50", c.Feedback.BiasHz)
	}
	if got := c.Feedback.RealRateMap()[44100]; got != 44120 {
		t.Errorf("RealRateMap()[44100] = %d, want 44120", got)
	}
	if c.Telemetry.StatusInterval != 2*time.Second {
		t.Errorf("Telemetry.StatusInterval = %v, want 2s", c.Telemetry.StatusInterval)
	}
	if c.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", c.LogLevel())
	}

	ac := c.AudioConfig()
	if ac.Rate != 44100 || ac.SubslotBytes != 2 {
		t.Errorf("AudioConfig() rate/subslot = %d/%d, want 44100/2", ac.Rate, ac.SubslotBytes)
	}
	if ac.DefaultVolume != -12*256 {
		t.Errorf("AudioConfig().DefaultVolume = %d, want %d", ac.DefaultVolume, -12*256)
	}
	if ac.Volume.Res != 0x300 {
		t.Errorf("AudioConfig().Volume.Res = %#x, want 0x300", ac.Volume.Res)
	}
	if err := ac.Validate(); err != nil {
		t.Errorf("AudioConfig().Validate() = %v, want nil", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "stream:\n  sample_rate: 48000\n"},
		{"bad yaml", "stream: [\n"},
		{"rate not listed", "stream:\n  rate: 12345\n"},
		{"unsupported rate", "stream:\n  rates: [44000, 48000]\n"},
		{"bad depth", "stream:\n  bit_depth: 20\n"},
		{"bad backend", "output:\n  backend: alsa\n"},
		{"bias too high", "feedback:\n  bias_hz: 5000\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"default below min", "volume:\n  default_db: -100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.body)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() error = nil, want error")
	}
}

func TestValidateWrapsSentinel(t *testing.T) {
	c := Default()
	c.Stream.Channels = 0
	c.Output.Codec = "alsa"

	err := c.Validate()
	if !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Validate() = %v, want ErrInvalidParameter", err)
	}
}

func TestRingFrames(t *testing.T) {
	c := Default()
	if got := c.RingFrames(); got != 3840 {
		t.Errorf("RingFrames() = %d, want 3840", got)
	}
}

func TestVolumeCodes(t *testing.T) {
	lo, hi, res, def := Default().Volume.Codes()
	if lo != -0x6000 || hi != 0 || res != 0x300 || def != -0x6000 {
		t.Errorf("Codes() = %#x %#x %#x %#x, want -0x6000 0 0x300 -0x6000", lo, hi, res, def)
	}
}

func TestManagerWatch(t *testing.T) {
	path := writeFile(t, "log:\n  level: warn\n")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if m.Current().Log.Level != "warn" {
		t.Fatalf("Current().Log.Level = %q, want warn", m.Current().Log.Level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan Config, 1)
	m.Watch(ctx, func(c Config) {
		select {
		case changed <- c:
		default:
		}
	})

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case c := <-changed:
		if c.Log.Level != "debug" {
			t.Errorf("reloaded Log.Level = %q, want debug", c.Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
	if m.Current().Log.Level != "debug" {
		t.Errorf("Current().Log.Level = %q, want debug", m.Current().Log.Level)
	}
}

func TestManagerKeepsLastValid(t *testing.T) {
	path := writeFile(t, "stream:\n  rate: 44100\n")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("stream:\n  rate: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := m.load(); err == nil {
		t.Error("load() error = nil, want error")
	}
	if m.Current().Stream.Rate != 44100 {
		t.Errorf("Current().Stream.Rate = %d, want 44100", m.Current().Stream.Rate)
	}
}
