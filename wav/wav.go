// Package wav renders the output of an engine to a wav file. Rendering
// is an offline driver: it pulls blocks from the engine in a plain loop
// on the calling goroutine, so it may allocate and block freely.
package wav

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/patch"
	"pipelined.dev/patch/signal"
)

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")

// Render processes the given number of blocks through the engine and
// writes the output to a wav file at path.
func Render(e *patch.Engine, path string, blocks int, bitDepth signal.BitDepth) error {
	if bitDepth != signal.BitDepth16 && bitDepth != signal.BitDepth32 {
		return ErrUnsupportedBitDepth
	}
	cfg := e.Config()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	encoder := wav.NewEncoder(f, cfg.SampleRate, int(bitDepth), cfg.NumChannels, 1)

	out := signal.Alloc(cfg.NumChannels, cfg.BlockSize)
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: cfg.NumChannels,
			SampleRate:  cfg.SampleRate,
		},
		SourceBitDepth: int(bitDepth),
	}
	for i := 0; i < blocks; i++ {
		e.ProcessBlock(nil, out)
		ib.Data = out.AsInterInt(bitDepth)
		if err := encoder.Write(ib); err != nil {
			f.Close()
			return fmt.Errorf("write block %d: %w", i, err)
		}
	}
	if err := encoder.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RenderBuffer processes the given number of blocks through the engine
// and returns the concatenated output samples per channel. Useful for
// inspecting rendered signal in tests and analysis.
func RenderBuffer(e *patch.Engine, blocks int) [][]float64 {
	cfg := e.Config()
	result := make([][]float64, cfg.NumChannels)
	for c := range result {
		result[c] = make([]float64, 0, blocks*cfg.BlockSize)
	}
	out := signal.Alloc(cfg.NumChannels, cfg.BlockSize)
	for i := 0; i < blocks; i++ {
		e.ProcessBlock(nil, out)
		for c := range result {
			result[c] = append(result[c], out.Channel(c)...)
		}
	}
	return result
}
