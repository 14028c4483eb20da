// Package ring implements a lock-free single-producer/single-consumer byte
// buffer used as the elastic stage between USB packet ingestion and the
// output scheduler.
//
// Exactly one goroutine may call [Buffer.Write] and exactly one goroutine may
// call [Buffer.Read]. Each side stores only its own monotonic index and loads
// the other's atomically, so no lock guards the data path.
package ring

import (
	"fmt"
	"sync/atomic"

	"github.com/ardnew/softdac/pkg"
)

// Buffer is a fixed-capacity SPSC byte ring addressed by monotonic indices.
// The zero value is not usable; create one with [New].
type Buffer struct {
	data      []byte
	size      uint64 // capacity in bytes
	frameSize int

	w atomic.Uint64 // producer-owned
	r atomic.Uint64 // consumer-owned

	overruns  atomic.Uint64
	underruns atomic.Uint64
}

// New allocates a buffer holding capacityFrames frames of frameSize bytes.
func New(capacityFrames, frameSize int) (*Buffer, error) {
	if capacityFrames <= 0 || frameSize <= 0 {
		return nil, fmt.Errorf("%w: ring %d frames of %d bytes",
			pkg.ErrInvalidParameter, capacityFrames, frameSize)
	}
	size := capacityFrames * frameSize
	return &Buffer{
		data:      make([]byte, size),
		size:      uint64(size),
		frameSize: frameSize,
	}, nil
}

// Capacity returns the buffer size in bytes.
func (b *Buffer) Capacity() int { return int(b.size) }

// FrameSize returns the size of one frame in bytes.
func (b *Buffer) FrameSize() int { return b.frameSize }

// AvailableForRead returns the number of buffered bytes.
func (b *Buffer) AvailableForRead() int {
	r := b.r.Load()
	w := b.w.Load()
	return int(w - r)
}

// AvailableForWrite returns the number of free bytes.
func (b *Buffer) AvailableForWrite() int {
	return int(b.size) - b.AvailableForRead()
}

// Write copies all of p into the buffer, or nothing. When free space is
// short it counts an overrun and returns [pkg.ErrOverrun].
// Only the producer may call Write.
func (b *Buffer) Write(p []byte) error {
	n := uint64(len(p))
	if n == 0 {
		return nil
	}
	w := b.w.Load()
	r := b.r.Load()
	if b.size-(w-r) < n {
		b.overruns.Add(1)
		return pkg.ErrOverrun
	}

	off := w % b.size
	first := copy(b.data[off:], p)
	copy(b.data, p[first:])

	b.w.Store(w + n)
	return nil
}

// Read fills all of dst from the buffer, or nothing. When data is short it
// counts an underrun and returns [pkg.ErrUnderrun]; dst is left untouched and
// the caller substitutes silence.
// Only the consumer may call Read.
func (b *Buffer) Read(dst []byte) error {
	n := uint64(len(dst))
	if n == 0 {
		return nil
	}
	r := b.r.Load()
	w := b.w.Load()
	if w-r < n {
		b.underruns.Add(1)
		return pkg.ErrUnderrun
	}

	off := r % b.size
	first := copy(dst, b.data[off:])
	copy(dst[first:], b.data)

	b.r.Store(r + n)
	return nil
}

// FillPercent returns the buffered share of capacity, 0 to 100.
func (b *Buffer) FillPercent() uint8 {
	return uint8(uint64(b.AvailableForRead()) * 100 / b.size)
}

// Overruns returns the number of rejected writes.
func (b *Buffer) Overruns() uint64 { return b.overruns.Load() }

// Underruns returns the number of rejected reads.
func (b *Buffer) Underruns() uint64 { return b.underruns.Load() }

// Reset empties the buffer. Counters are preserved.
// Reset is only legal while neither the producer nor the consumer is active.
func (b *Buffer) Reset() {
	b.r.Store(0)
	b.w.Store(0)
	pkg.LogDebug(pkg.ComponentRing, "ring reset", "capacity", b.size)
}
