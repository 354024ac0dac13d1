// Package signal provides fixed-capacity sample buffers moved between
// processing nodes. Buffers are allocated once, up front, and reused for
// the lifetime of the engine. It also provides conversion between
// non-interleaved float64 signal and interleaved int signal used by
// file encoders.
package signal

import (
	"math"
)

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

func (bitDepth BitDepth) multiplier() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8 - 1
	case BitDepth16:
		return math.MaxInt16 - 1
	case BitDepth32:
		return math.MaxInt32 - 1
	default:
		return 1
	}
}

// Buffer is a non-interleaved block of float64 samples with a fixed
// channel count and size. It is never resized after allocation.
//
// Tag is an identity tag assigned by the buffer owner, e.g. the index of
// the buffer within a pool. It is opaque to processing code.
type Buffer struct {
	data [][]float64
	size int
	Tag  int
}

// Alloc allocates a new buffer of size samples for numChannels channels.
// This is the only place where sample memory is allocated.
func Alloc(numChannels, size int) *Buffer {
	data := make([][]float64, numChannels)
	for i := range data {
		data[i] = make([]float64, size)
	}
	return &Buffer{
		data: data,
		size: size,
		Tag:  -1,
	}
}

// NumChannels returns number of channels in the buffer.
func (b *Buffer) NumChannels() int {
	return len(b.data)
}

// Size returns number of samples per channel.
func (b *Buffer) Size() int {
	return b.size
}

// Channel returns samples of a single channel.
func (b *Buffer) Channel(c int) []float64 {
	return b.data[c]
}

// Data returns samples of all channels.
func (b *Buffer) Data() [][]float64 {
	return b.data
}

// Silence zeroes all samples of the buffer.
func (b *Buffer) Silence() {
	for c := range b.data {
		channel := b.data[c]
		for i := range channel {
			channel[i] = 0
		}
	}
}

// Copy copies samples from the source buffer. Buffers must have equal
// dimensions.
func (b *Buffer) Copy(source *Buffer) {
	for c := range b.data {
		copy(b.data[c], source.data[c])
	}
}

// Add sums samples of the source buffer into the buffer.
func (b *Buffer) Add(source *Buffer) {
	for c := range b.data {
		dst, src := b.data[c], source.data[c]
		for i := range dst {
			dst[i] += src[i]
		}
	}
}

// Finite returns false if any sample is NaN or infinite.
func (b *Buffer) Finite() bool {
	for c := range b.data {
		for _, s := range b.data[c] {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return false
			}
		}
	}
	return true
}

// AsInterInt converts the buffer to interleaved int signal of provided
// bit depth. It allocates and must not be used on the audio path.
func (b *Buffer) AsInterInt(bitDepth BitDepth) []int {
	numChannels := b.NumChannels()
	if numChannels == 0 {
		return nil
	}
	multiplier := float64(bitDepth.multiplier())
	ints := make([]int, b.size*numChannels)
	for c := range b.data {
		for i, s := range b.data[c] {
			ints[i*numChannels+c] = int(s * multiplier)
		}
	}
	return ints
}
