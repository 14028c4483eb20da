package oto

import (
	"sync"

	"github.com/ardnew/softdac/device/hal"
)

// pump is the io.Reader handed to the player. It walks the circular buffer
// in place, converting each sample to 16-bit little endian, and reports
// every half it finishes. Reads while stopped produce silence.
type pump struct {
	mutex     sync.Mutex
	buf       []byte
	onSegment hal.SegmentHandler
	subslot   int
	channels  int
	pos       int
	running   bool
}

func (p *pump) start(buf []byte, onSegment hal.SegmentHandler, channels, subslot uint8) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.buf = buf
	p.onSegment = onSegment
	p.channels = int(channels)
	p.subslot = int(subslot)
	p.pos = 0
	p.running = true
}

// stop waits for an in-progress Read, so no segment event follows it.
func (p *pump) stop() {
	p.mutex.Lock()
	p.running = false
	p.mutex.Unlock()
}

// Read implements io.Reader. Only whole output frames are produced.
func (p *pump) Read(out []byte) (int, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	frame := 2 * max(p.channels, 1)
	n := len(out) / frame * frame
	if !p.running || len(p.buf) < 2*p.subslot {
		clear(out[:n])
		return n, nil
	}

	sub := p.subslot
	half := len(p.buf) / 2
	for i := 0; i < n; i += 2 {
		// The top two bytes of a little-endian subslot are its 16 MSBs.
		out[i] = p.buf[p.pos+sub-2]
		out[i+1] = p.buf[p.pos+sub-1]
		p.pos += sub

		switch p.pos {
		case half:
			p.fire(hal.SegmentHalf)
		case len(p.buf):
			p.pos = 0
			p.fire(hal.SegmentFull)
		}
	}
	return n, nil
}

func (p *pump) fire(seg hal.Segment) {
	if p.onSegment != nil {
		p.onSegment(seg)
	}
}
