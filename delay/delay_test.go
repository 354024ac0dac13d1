package delay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/patch/delay"
	"pipelined.dev/patch/signal"
)

func block(value float64) *signal.Buffer {
	b := signal.Alloc(1, 4)
	ch := b.Channel(0)
	for i := range ch {
		ch[i] = value
	}
	return b
}

func process(d *delay.Delay, in *signal.Buffer) *signal.Buffer {
	out := signal.Alloc(1, 4)
	d.Process([]*signal.Buffer{in}, []*signal.Buffer{out}, 0)
	return out
}

func TestOneBlock(t *testing.T) {
	d := delay.New(1, 4, 1)
	assert.Equal(t, 1, d.BlockLatency())

	assert.Zero(t, process(d, block(1)).Channel(0)[0])
	assert.Equal(t, 1.0, process(d, block(2)).Channel(0)[0])
	assert.Equal(t, 2.0, process(d, block(3)).Channel(0)[0])
}

func TestThreeBlocks(t *testing.T) {
	d := delay.New(1, 4, 3)
	inputs := []float64{1, 2, 3, 4, 5, 6}
	expected := []float64{0, 0, 0, 1, 2, 3}
	for i, v := range inputs {
		out := process(d, block(v))
		assert.Equal(t, expected[i], out.Channel(0)[0], "block %d", i)
	}
}

func TestMinimumOneBlock(t *testing.T) {
	d := delay.New(1, 4, 0)
	assert.Equal(t, 1, d.BlockLatency())
}

func TestHeldDimensions(t *testing.T) {
	d := delay.New(2, 8, 1)
	held := d.Held(0)
	assert.Equal(t, 2, held.NumChannels())
	assert.Equal(t, 8, held.Size())
}
