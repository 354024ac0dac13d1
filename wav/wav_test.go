package wav_test

import (
	"os"
	"path/filepath"
	"testing"

	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/patch"
	"pipelined.dev/patch/mock"
	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
	"pipelined.dev/patch/wav"
)

func newEngine(t *testing.T) *patch.Engine {
	t.Helper()
	e, err := patch.New(patch.Config{SampleRate: 44100, BlockSize: 64, NumChannels: 2})
	require.NoError(t, err)
	src, err := e.Add(mock.NewSource(44100, 0.5, param.None, 0))
	require.NoError(t, err)
	require.NoError(t, e.Connect(src, 0, e.Out(), 0))
	return e
}

func TestRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.wav")
	require.NoError(t, wav.Render(newEngine(t), path, 10, signal.BitDepth16))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decoder := gowav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, 44100, buf.Format.SampleRate)
	assert.Len(t, buf.Data, 10*64*2)

	// 0.5 scaled to 16 bit
	assert.InDelta(t, 0.5, float64(buf.Data[0])/(1<<15), 1e-3)
}

func TestRenderUnsupportedBitDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.wav")
	err := wav.Render(newEngine(t), path, 1, signal.BitDepth8)
	assert.ErrorIs(t, err, wav.ErrUnsupportedBitDepth)
}

func TestRenderBuffer(t *testing.T) {
	samples := wav.RenderBuffer(newEngine(t), 5)
	require.Len(t, samples, 2)
	for c := range samples {
		require.Len(t, samples[c], 5*64)
		for i, s := range samples[c] {
			assert.InDelta(t, 0.5, s, 1e-12, "channel %d sample %d", c, i)
		}
	}
}
