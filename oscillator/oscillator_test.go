package oscillator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/patch/oscillator"
	"pipelined.dev/patch/signal"
	"pipelined.dev/patch/spectral"
)

const sampleRate = 44100

func render(o *oscillator.Oscillator, channels, size int) *signal.Buffer {
	out := signal.Alloc(channels, size)
	o.Process(nil, []*signal.Buffer{out}, 0)
	return out
}

func TestSine(t *testing.T) {
	o := oscillator.New(oscillator.Sine, sampleRate, 440)
	out := render(o, 2, 64)
	for i, s := range out.Channel(0) {
		expected := math.Sin(2 * math.Pi * 440 * float64(i) / sampleRate)
		assert.InDelta(t, expected, s, 1e-9, "sample %d", i)
	}
	// all channels carry the same signal
	assert.Equal(t, out.Channel(0), out.Channel(1))
}

func TestShapeRange(t *testing.T) {
	tests := []struct {
		name  string
		shape oscillator.Shape
	}{
		{name: "sine", shape: oscillator.Sine},
		{name: "saw", shape: oscillator.Saw},
		{name: "square", shape: oscillator.Square},
		{name: "triangle", shape: oscillator.Triangle},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			o := oscillator.New(test.shape, sampleRate, 440)
			out := render(o, 1, 512)
			for i, s := range out.Channel(0) {
				assert.LessOrEqual(t, math.Abs(s), 1.0, "sample %d", i)
			}
		})
	}
}

func TestPhaseContinuity(t *testing.T) {
	o := oscillator.New(oscillator.Sine, sampleRate, 440)
	first := render(o, 1, 32)
	second := render(o, 1, 32)
	expected := math.Sin(2 * math.Pi * 440 * 32 / sampleRate)
	require.InDelta(t, expected, second.Channel(0)[0], 1e-9)
	assert.NotEqual(t, first.Channel(0)[0], second.Channel(0)[0])
}

func TestSpectralPeak(t *testing.T) {
	const size = 4096
	o := oscillator.New(oscillator.Sine, sampleRate, 440)
	out := render(o, 1, size)
	peak, err := spectral.PeakFrequency(out.Channel(0), sampleRate)
	require.NoError(t, err)
	// bin resolution is sampleRate/size ≈ 10.8 Hz
	assert.InDelta(t, 440, peak, float64(sampleRate)/size)
}
