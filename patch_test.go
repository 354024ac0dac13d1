package patch_test

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/patch"
	"pipelined.dev/patch/delay"
	"pipelined.dev/patch/gain"
	"pipelined.dev/patch/mixer"
	"pipelined.dev/patch/mock"
	"pipelined.dev/patch/oscillator"
	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

const (
	sampleRate = 44100
	blockSize  = 8
)

func newEngine(t *testing.T, cfg patch.Config) *patch.Engine {
	t.Helper()
	e, err := patch.New(cfg)
	require.NoError(t, err)
	return e
}

func drainEvents(e *patch.Engine) []patch.Event {
	buf := make([]patch.Event, 64)
	n := e.Events(buf)
	return buf[:n]
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  patch.Config
	}{
		{name: "zero sample rate", cfg: patch.Config{BlockSize: 64, NumChannels: 2}},
		{name: "zero block size", cfg: patch.Config{SampleRate: 44100, NumChannels: 2}},
		{name: "zero channels", cfg: patch.Config{SampleRate: 44100, BlockSize: 64}},
		{name: "negative block size", cfg: patch.Config{SampleRate: 44100, BlockSize: -1, NumChannels: 2}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := patch.New(test.cfg)
			assert.ErrorIs(t, err, patch.ErrConfiguration)
		})
	}
}

func TestEmptyPatchSilence(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 2})
	out := signal.Alloc(2, blockSize)
	out.Channel(0)[0] = 42 // garbage to be overwritten
	e.ProcessBlock(nil, out)
	for c := 0; c < 2; c++ {
		for _, s := range out.Channel(c) {
			assert.Zero(t, s)
		}
	}
}

func TestSineThroughGain(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: 4, NumChannels: 1})

	osc, err := e.Add(oscillator.New(oscillator.Sine, sampleRate, 440))
	require.NoError(t, err)
	g, err := e.Add(gain.New(sampleRate, 0.5))
	require.NoError(t, err)
	require.NoError(t, e.Connect(osc, 0, g, 0))
	require.NoError(t, e.Connect(g, 0, e.Out(), 0))

	out := signal.Alloc(1, 4)
	e.ProcessBlock(nil, out)
	for i := 0; i < 4; i++ {
		expected := 0.5 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
		assert.InDelta(t, expected, out.Channel(0)[i], 1e-9, "sample %d", i)
	}

	// the sample clock keeps running across blocks
	e.ProcessBlock(nil, out)
	for i := 0; i < 4; i++ {
		expected := 0.5 * math.Sin(2*math.Pi*440*float64(i+4)/sampleRate)
		assert.InDelta(t, expected, out.Channel(0)[i], 1e-9, "sample %d", i)
	}
	assert.Empty(t, drainEvents(e))
}

func TestDriverInputPassthrough(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})
	g, err := e.Add(gain.New(sampleRate, 2))
	require.NoError(t, err)
	require.NoError(t, e.Connect(e.In(), 0, g, 0))
	require.NoError(t, e.Connect(g, 0, e.Out(), 0))

	in := signal.Alloc(1, blockSize)
	out := signal.Alloc(1, blockSize)
	for i := range in.Channel(0) {
		in.Channel(0)[i] = 0.25
	}
	e.ProcessBlock(in, out)
	for _, s := range out.Channel(0) {
		assert.InDelta(t, 0.5, s, 1e-12)
	}
}

func TestFaultContained(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})

	faulty := mock.NewPass()
	faulty.Faulty = true
	src1, err := e.Add(mock.NewSource(sampleRate, 0.25, param.None, 0))
	require.NoError(t, err)
	bad, err := e.Add(faulty)
	require.NoError(t, err)
	src2, err := e.Add(mock.NewSource(sampleRate, 0.5, param.None, 0))
	require.NoError(t, err)
	mix, err := e.Add(mixer.New(sampleRate, 2))
	require.NoError(t, err)

	require.NoError(t, e.Connect(src1, 0, bad, 0))
	require.NoError(t, e.Connect(bad, 0, mix, 0))
	require.NoError(t, e.Connect(src2, 0, mix, 1))
	require.NoError(t, e.Connect(mix, 0, e.Out(), 0))

	out := signal.Alloc(1, blockSize)
	e.ProcessBlock(nil, out)

	// the faulty branch is silenced, the sibling is untouched and the
	// block is still delivered
	for _, s := range out.Channel(0) {
		assert.InDelta(t, 0.5, s, 1e-12)
	}
	events := drainEvents(e)
	require.Len(t, events, 1)
	assert.Equal(t, patch.EventFault, events[0].Kind)
	assert.Equal(t, bad, events[0].Node)
}

func TestQueueBackpressure(t *testing.T) {
	e := newEngine(t, patch.Config{
		SampleRate:  sampleRate,
		BlockSize:   blockSize,
		NumChannels: 1,
		QueueSize:   4,
	})
	src, err := e.Add(mock.NewSource(sampleRate, 0, param.None, 0))
	require.NoError(t, err)
	require.NoError(t, e.Connect(src, 0, e.Out(), 0))
	out := signal.Alloc(1, blockSize)
	e.ProcessBlock(nil, out)

	// fill the queue
	for i := 1; i <= 4; i++ {
		require.NoError(t, e.SetParamNow(src, mock.Value, float64(i)/10))
	}
	// excess commands are rejected without corrupting the queued ones
	assert.ErrorIs(t, e.SetParamNow(src, mock.Value, 0.9), patch.ErrQueueFull)
	assert.ErrorIs(t, e.SetParam(src, mock.Value, 0.9), patch.ErrQueueFull)

	e.ProcessBlock(nil, out)
	// applied in order, the last queued value wins
	for _, s := range out.Channel(0) {
		assert.InDelta(t, 0.4, s, 1e-12)
	}
}

func TestCyclicBatchRejected(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: 4, NumChannels: 1})
	osc, err := e.Add(oscillator.New(oscillator.Sine, sampleRate, 440))
	require.NoError(t, err)
	require.NoError(t, e.Connect(osc, 0, e.Out(), 0))
	out := signal.Alloc(1, 4)
	e.ProcessBlock(nil, out)

	// enqueue a batch forming a delay-free cycle
	a, err := e.Add(mock.NewPass())
	require.NoError(t, err)
	b, err := e.Add(mock.NewPass())
	require.NoError(t, err)
	require.NoError(t, e.Connect(a, 0, b, 0))
	require.NoError(t, e.Connect(b, 0, a, 0))

	e.ProcessBlock(nil, out)
	events := drainEvents(e)
	require.NotEmpty(t, events)
	rejected := events[len(events)-1]
	assert.Equal(t, patch.EventRejectedCommit, rejected.Kind)
	assert.ErrorIs(t, rejected.Err, patch.ErrCyclicGraph)

	// the previously committed topology keeps playing
	e.ProcessBlock(nil, out)
	silent := true
	for _, s := range out.Channel(0) {
		if s != 0 {
			silent = false
		}
	}
	assert.False(t, silent, "previous topology must stay schedulable")
}

func TestFeedbackThroughDelay(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})

	src, err := e.Add(mock.NewSource(sampleRate, 1, param.None, 0))
	require.NoError(t, err)
	mix, err := e.Add(mixer.New(sampleRate, 2))
	require.NoError(t, err)
	dly, err := e.Add(delay.New(1, blockSize, 1))
	require.NoError(t, err)
	fb, err := e.Add(gain.New(sampleRate, 0.5))
	require.NoError(t, err)

	require.NoError(t, e.Connect(src, 0, mix, 0))
	require.NoError(t, e.Connect(mix, 0, dly, 0))
	require.NoError(t, e.Connect(dly, 0, fb, 0))
	require.NoError(t, e.Connect(fb, 0, mix, 1))
	require.NoError(t, e.Connect(mix, 0, e.Out(), 0))

	out := signal.Alloc(1, blockSize)
	expected := []float64{1, 1, 1.5, 1.5, 1.75}
	for i, want := range expected {
		e.ProcessBlock(nil, out)
		assert.InDelta(t, want, out.Channel(0)[0], 1e-12, "block %d", i)
	}
	assert.Empty(t, drainEvents(e))
}

func TestRemoveNode(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})
	src, err := e.Add(mock.NewSource(sampleRate, 0.5, param.None, 0))
	require.NoError(t, err)
	require.NoError(t, e.Connect(src, 0, e.Out(), 0))
	out := signal.Alloc(1, blockSize)
	e.ProcessBlock(nil, out)
	assert.InDelta(t, 0.5, out.Channel(0)[0], 1e-12)

	require.NoError(t, e.Remove(src))
	e.ProcessBlock(nil, out)
	for _, s := range out.Channel(0) {
		assert.Zero(t, s)
	}

	// the id is dead afterwards
	assert.ErrorIs(t, e.SetParam(src, mock.Value, 1), patch.ErrInvalidNodeReference)
	assert.ErrorIs(t, e.Remove(src), patch.ErrInvalidNodeReference)
}

func TestEndpointsProtected(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})
	assert.ErrorIs(t, e.Remove(e.In()), patch.ErrInvalidNodeReference)
	assert.ErrorIs(t, e.Remove(e.Out()), patch.ErrInvalidNodeReference)
	assert.ErrorIs(t, e.Connect(e.In(), 1, e.Out(), 0), patch.ErrInvalidPort)
	assert.ErrorIs(t, e.Connect(patch.NodeID(99), 0, e.Out(), 0), patch.ErrInvalidNodeReference)
}

func TestTooManyNodes(t *testing.T) {
	e := newEngine(t, patch.Config{
		SampleRate:  sampleRate,
		BlockSize:   blockSize,
		NumChannels: 1,
		MaxNodes:    3,
	})
	// endpoints occupy two slots
	_, err := e.Add(mock.NewPass())
	require.NoError(t, err)
	_, err = e.Add(mock.NewPass())
	assert.ErrorIs(t, err, patch.ErrTooManyNodes)
}

func TestBadParamReported(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})
	src, err := e.Add(mock.NewSource(sampleRate, 0.5, param.None, 0))
	require.NoError(t, err)
	require.NoError(t, e.SetParam(src, "no-such-parameter", 1))

	out := signal.Alloc(1, blockSize)
	e.ProcessBlock(nil, out)
	events := drainEvents(e)
	require.Len(t, events, 1)
	assert.Equal(t, patch.EventBadCommand, events[0].Kind)
	assert.Equal(t, src, events[0].Node)
}

func TestParamSmoothing(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})
	src, err := e.Add(mock.NewSource(sampleRate, 0, param.Exponential, 5))
	require.NoError(t, err)
	require.NoError(t, e.Connect(src, 0, e.Out(), 0))
	out := signal.Alloc(1, blockSize)
	e.ProcessBlock(nil, out)

	require.NoError(t, e.SetParam(src, mock.Value, 1))

	// ramps toward the target without overshoot and converges
	prev := 0.0
	blocks := sampleRate / blockSize / 10 // ~100ms
	for i := 0; i < blocks; i++ {
		e.ProcessBlock(nil, out)
		for _, s := range out.Channel(0) {
			assert.GreaterOrEqual(t, s, prev-1e-12)
			assert.LessOrEqual(t, s, 1.0)
			prev = s
		}
	}
	assert.InDelta(t, 1.0, prev, 1e-6)
}

func TestClockAdvances(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})
	src := mock.NewSource(sampleRate, 0, param.None, 0)
	src.Record = true
	id, err := e.Add(src)
	require.NoError(t, err)
	require.NoError(t, e.Connect(id, 0, e.Out(), 0))

	out := signal.Alloc(1, blockSize)
	for i := 0; i < 3; i++ {
		e.ProcessBlock(nil, out)
	}
	assert.Equal(t, []int64{0, blockSize, 2 * blockSize}, src.Clocks)
	assert.Equal(t, int64(3*blockSize), e.Clock())
}

func TestConcurrentEventDrain(t *testing.T) {
	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})
	faulty := mock.NewPass()
	faulty.Faulty = true
	src, err := e.Add(mock.NewSource(sampleRate, 0.5, param.None, 0))
	require.NoError(t, err)
	bad, err := e.Add(faulty)
	require.NoError(t, err)
	require.NoError(t, e.Connect(src, 0, bad, 0))
	require.NoError(t, e.Connect(bad, 0, e.Out(), 0))

	out := signal.Alloc(1, blockSize)
	const blocks = 100
	for i := 0; i < blocks; i++ {
		e.ProcessBlock(nil, out)
	}

	// two control goroutines drain at once: every event is delivered
	// exactly once and intact
	var (
		wg    sync.WaitGroup
		total atomic.Int64
	)
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]patch.Event, 8)
			for {
				n := e.Events(buf)
				if n == 0 {
					return
				}
				for _, ev := range buf[:n] {
					if ev.Kind != patch.EventFault || ev.Node != bad {
						t.Error("corrupted event:", ev)
					}
				}
				total.Add(int64(n))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(blocks), total.Load())
	assert.Zero(t, e.DroppedEvents())
}

func TestConcurrentControl(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newEngine(t, patch.Config{SampleRate: sampleRate, BlockSize: blockSize, NumChannels: 1})
	src, err := e.Add(mock.NewSource(sampleRate, 0, param.None, 0))
	require.NoError(t, err)
	require.NoError(t, e.Connect(src, 0, e.Out(), 0))

	const blocks = 500
	done := make(chan struct{})
	go func() {
		defer close(done)
		out := signal.Alloc(1, blockSize)
		for i := 0; i < blocks; i++ {
			e.ProcessBlock(nil, out)
		}
	}()
	for i := 0; i < 200; i++ {
		// the queue may be momentarily full, the engine must stay sane
		_ = e.SetParam(src, mock.Value, float64(i%10)/10)
		runtime.Gosched()
	}
	<-done
	assert.Equal(t, int64(blocks*blockSize), e.Clock())
}
