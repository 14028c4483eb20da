package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardnew/softdac/device/class/uac"
)

const namespace = "softdac"

// StatusSource is the stream being observed. *uac.Audio implements it.
type StatusSource interface {
	Status() uac.Status
	EventTotal(c uac.EventCategory) uint64
}

var _ StatusSource = (*uac.Audio)(nil)

var streamStates = [...]uac.StreamState{uac.StateIdle, uac.StateStopped, uac.StateStreaming}

// Collector exports a StatusSource as Prometheus metrics. Values are read
// from one Status snapshot per scrape.
type Collector struct {
	src StatusSource

	state          *prometheus.Desc
	rate           *prometheus.Desc
	bitDepth       *prometheus.Desc
	channels       *prometheus.Desc
	muted          *prometheus.Desc
	volume         *prometheus.Desc
	bufferFill     *prometheus.Desc
	overruns       *prometheus.Desc
	underruns      *prometheus.Desc
	zeroFills      *prometheus.Desc
	events         *prometheus.Desc
	eventRate      *prometheus.Desc
	hostRate       *prometheus.Desc
	feedbackTarget *prometheus.Desc
	feedbackHz     *prometheus.Desc
	realRate       *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
}

// NewCollector returns a collector reading src.
func NewCollector(src StatusSource) *Collector {
	return &Collector{
		src:            src,
		state:          desc("stream_state", "1 for the current stream state", "state"),
		rate:           desc("sample_rate_hz", "Active sample rate"),
		bitDepth:       desc("bit_depth_bits", "Subslot width"),
		channels:       desc("channels", "Interleaved channels"),
		muted:          desc("muted", "1 when the feature unit is muted"),
		volume:         desc("volume_percent", "Feature unit volume as a percentage"),
		bufferFill:     desc("buffer_fill_percent", "Ring buffer fill level"),
		overruns:       desc("ring_overruns_total", "Packets dropped on a full ring"),
		underruns:      desc("ring_underruns_total", "Segment refills that found the ring short"),
		zeroFills:      desc("output_zero_fills_total", "Segments filled with silence"),
		events:         desc("events_total", "USB events by category", "category"),
		eventRate:      desc("events_per_second", "USB events per second over the last stats window", "category"),
		hostRate:       desc("host_rate_hz", "Sample rate measured from received data"),
		feedbackTarget: desc("feedback_target_hz", "Rate requested by the last feedback decision"),
		feedbackHz:     desc("feedback_hz", "Rate carried by the last feedback packet"),
		realRate:       desc("real_rate_hz", "Measured output clock for the active rate"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.state, c.rate, c.bitDepth, c.channels, c.muted, c.volume,
		c.bufferFill, c.overruns, c.underruns, c.zeroFills, c.events,
		c.eventRate, c.hostRate, c.feedbackTarget, c.feedbackHz, c.realRate,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Status()

	for _, st := range streamStates {
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, flag(s.State == st), st.String())
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}

	gauge(c.rate, float64(s.Rate))
	gauge(c.bitDepth, float64(s.BitDepth))
	gauge(c.channels, float64(s.Channels))
	gauge(c.muted, flag(s.Muted))
	gauge(c.volume, float64(s.VolumePercent))
	gauge(c.bufferFill, float64(s.BufferFill))
	counter(c.overruns, s.Overruns)
	counter(c.underruns, s.Underruns)
	counter(c.zeroFills, s.ZeroFills)
	gauge(c.hostRate, float64(s.HostRateHz))
	gauge(c.feedbackTarget, float64(uac.DecodeFeedback(s.FeedbackTarget)))
	gauge(c.feedbackHz, float64(s.FeedbackHz))
	gauge(c.realRate, float64(s.RealRateHz))

	for _, cat := range uac.EventCategories {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue,
			float64(c.src.EventTotal(cat)), cat.String())
		ch <- prometheus.MustNewConstMetric(c.eventRate, prometheus.GaugeValue,
			float64(s.Rates.Get(cat)), cat.String())
	}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
