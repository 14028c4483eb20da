package uac

import "sync/atomic"

// EventCategory identifies an event counted per latch period.
type EventCategory int

// Event categories.
const (
	EventIsoInIncomplete  EventCategory = iota // Missed feedback frame
	EventIsoOutIncomplete                      // Missed data frame
	EventDataIn                                // IN endpoint completion
	EventDataOut                               // OUT packet received
	EventFeedback                              // Feedback value transmitted
	numEventCategories
)

// String returns the category name used in logs and metrics.
func (c EventCategory) String() string {
	switch c {
	case EventIsoInIncomplete:
		return "iso_in_incomplete"
	case EventIsoOutIncomplete:
		return "iso_out_incomplete"
	case EventDataIn:
		return "data_in"
	case EventDataOut:
		return "data_out"
	case EventFeedback:
		return "feedback"
	default:
		return "unknown"
	}
}

// EventCategories lists every category in order.
var EventCategories = [...]EventCategory{
	EventIsoInIncomplete,
	EventIsoOutIncomplete,
	EventDataIn,
	EventDataOut,
	EventFeedback,
}

// EventRates holds per-category event counts of the last latch period.
type EventRates struct {
	IsoInIncomplete  uint32 `yaml:"iso_in_incomplete"`
	IsoOutIncomplete uint32 `yaml:"iso_out_incomplete"`
	DataIn           uint32 `yaml:"data_in"`
	DataOut          uint32 `yaml:"data_out"`
	Feedback         uint32 `yaml:"feedback"`
}

// Get returns the rate for category c.
func (r EventRates) Get(c EventCategory) uint32 {
	switch c {
	case EventIsoInIncomplete:
		return r.IsoInIncomplete
	case EventIsoOutIncomplete:
		return r.IsoOutIncomplete
	case EventDataIn:
		return r.DataIn
	case EventDataOut:
		return r.DataOut
	case EventFeedback:
		return r.Feedback
	default:
		return 0
	}
}

// stats counts events on the input flow and latches them every period SOF
// ticks. Readers on other goroutines only load the latched values.
type stats struct {
	period uint32
	sofs   uint32

	counts  [numEventCategories]uint32
	rxBytes uint64

	rates   [numEventCategories]atomic.Uint32
	rxRate  atomic.Uint64 // bytes per latch period
	totals  [numEventCategories]atomic.Uint64
	latches atomic.Uint64
}

func newStats(period uint32) *stats {
	if period == 0 {
		period = StatsWindowFrames
	}
	return &stats{period: period}
}

func (s *stats) count(c EventCategory) {
	s.counts[c]++
	s.totals[c].Add(1)
}

func (s *stats) received(n int) {
	s.rxBytes += uint64(n)
}

// tick advances one SOF and latches the counters when the period ends.
// Returns true on a latch.
func (s *stats) tick() bool {
	s.sofs++
	if s.sofs < s.period {
		return false
	}
	s.sofs = 0
	for i := range s.counts {
		s.rates[i].Store(s.counts[i])
		s.counts[i] = 0
	}
	s.rxRate.Store(s.rxBytes)
	s.rxBytes = 0
	s.latches.Add(1)
	return true
}

func (s *stats) reset() {
	s.sofs = 0
	s.rxBytes = 0
	for i := range s.counts {
		s.counts[i] = 0
		s.rates[i].Store(0)
	}
	s.rxRate.Store(0)
}

func (s *stats) snapshot() EventRates {
	return EventRates{
		IsoInIncomplete:  s.rates[EventIsoInIncomplete].Load(),
		IsoOutIncomplete: s.rates[EventIsoOutIncomplete].Load(),
		DataIn:           s.rates[EventDataIn].Load(),
		DataOut:          s.rates[EventDataOut].Load(),
		Feedback:         s.rates[EventFeedback].Load(),
	}
}

func (s *stats) total(c EventCategory) uint64 {
	return s.totals[c].Load()
}

// hostRate returns the measured host sample rate in Hz given the frame size
// and the SOF rate.
func (s *stats) hostRate(frameBytes int, framesPerSecond uint32) uint32 {
	if frameBytes == 0 || s.period == 0 {
		return 0
	}
	bytesPerSecond := s.rxRate.Load() * uint64(framesPerSecond) / uint64(s.period)
	return uint32(bytesPerSecond / uint64(frameBytes))
}
