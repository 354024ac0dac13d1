package main

import (
	"flag"
	"fmt"
	"strings"

	"pipelined.dev/patch"
	"pipelined.dev/patch/filter"
	"pipelined.dev/patch/gain"
	"pipelined.dev/patch/mixer"
	"pipelined.dev/patch/noise"
	"pipelined.dev/patch/oscillator"
)

// demoFlags are the patch parameters shared by the render and play
// commands.
type demoFlags struct {
	sampleRate int
	blockSize  int
	shape      string
	frequency  float64
	cutoff     float64
	noiseLevel float64
	level      float64
}

func (f *demoFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&f.sampleRate, "rate", 44100, "sample rate in Hz")
	fs.IntVar(&f.blockSize, "block", 512, "block size in samples")
	fs.StringVar(&f.shape, "shape", "saw", "oscillator shape: sine, saw, square or triangle")
	fs.Float64Var(&f.frequency, "freq", 220, "oscillator frequency in Hz")
	fs.Float64Var(&f.cutoff, "cutoff", 2000, "filter cutoff in Hz")
	fs.Float64Var(&f.noiseLevel, "noise", 0.05, "noise level mixed under the oscillator")
	fs.Float64Var(&f.level, "level", 0.5, "output level")
}

func (f *demoFlags) parseShape() (oscillator.Shape, error) {
	switch strings.ToLower(f.shape) {
	case "sine":
		return oscillator.Sine, nil
	case "saw":
		return oscillator.Saw, nil
	case "square":
		return oscillator.Square, nil
	case "triangle":
		return oscillator.Triangle, nil
	}
	return 0, fmt.Errorf("unknown shape %q", f.shape)
}

// build assembles an oscillator plus noise, through a lowpass filter and
// an output gain.
func (f *demoFlags) build(numChannels int) (*patch.Engine, error) {
	shape, err := f.parseShape()
	if err != nil {
		return nil, err
	}
	e, err := patch.New(patch.Config{
		SampleRate:  f.sampleRate,
		BlockSize:   f.blockSize,
		NumChannels: numChannels,
	})
	if err != nil {
		return nil, err
	}

	osc, err := e.Add(oscillator.New(shape, f.sampleRate, f.frequency))
	if err != nil {
		return nil, err
	}
	nse, err := e.Add(noise.New(f.sampleRate, 1))
	if err != nil {
		return nil, err
	}
	mix, err := e.Add(mixer.New(f.sampleRate, 2))
	if err != nil {
		return nil, err
	}
	lp, err := e.Add(filter.NewSVF(filter.Lowpass, f.sampleRate, numChannels, f.cutoff, filter.QButterworth))
	if err != nil {
		return nil, err
	}
	out, err := e.Add(gain.New(f.sampleRate, f.level))
	if err != nil {
		return nil, err
	}

	steps := []error{
		e.Connect(osc, 0, mix, 0),
		e.Connect(nse, 0, mix, 1),
		e.Connect(mix, 0, lp, 0),
		e.Connect(lp, 0, out, 0),
		e.Connect(out, 0, e.Out(), 0),
		e.SetParamNow(mix, mixer.LevelName(1), f.noiseLevel),
	}
	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}
