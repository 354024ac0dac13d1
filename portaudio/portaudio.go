// Package portaudio plays the output of an engine through the default
// audio device. It is the live driver of an engine: the portaudio
// stream period paces ProcessBlock calls.
package portaudio

import (
	"context"

	"github.com/gordonklaus/portaudio"

	"pipelined.dev/patch"
	"pipelined.dev/patch/signal"
)

// Player feeds an engine's output to a portaudio stream.
type Player struct {
	engine *patch.Engine
	stream *portaudio.Stream
	out    *signal.Buffer
	buf    []float32
}

// NewPlayer initializes portaudio and opens the default output stream
// matching the engine configuration.
func NewPlayer(e *patch.Engine) (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	cfg := e.Config()
	p := &Player{
		engine: e,
		out:    signal.Alloc(cfg.NumChannels, cfg.BlockSize),
		buf:    make([]float32, cfg.BlockSize*cfg.NumChannels),
	}
	stream, err := portaudio.OpenDefaultStream(0, cfg.NumChannels, float64(cfg.SampleRate), cfg.BlockSize, &p.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	p.stream = stream
	return p, nil
}

// Play runs the engine until the context is cancelled or the stream
// fails.
func (p *Player) Play(ctx context.Context) error {
	if err := p.stream.Start(); err != nil {
		return err
	}
	cfg := p.engine.Config()
	for {
		select {
		case <-ctx.Done():
			return p.stream.Stop()
		default:
		}
		p.engine.ProcessBlock(nil, p.out)
		for i := 0; i < cfg.BlockSize; i++ {
			for c := 0; c < cfg.NumChannels; c++ {
				p.buf[i*cfg.NumChannels+c] = float32(p.out.Channel(c)[i])
			}
		}
		if err := p.stream.Write(); err != nil {
			return err
		}
	}
}

// Close terminates the stream and portaudio.
func (p *Player) Close() error {
	err := p.stream.Close()
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}
