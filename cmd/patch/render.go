package main

import (
	"flag"
	"fmt"

	"pipelined.dev/patch/signal"
	"pipelined.dev/patch/wav"
)

type renderCommand struct {
	demoFlags
	out      string
	seconds  float64
	bitDepth int
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Render the demo patch to a wav file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	cmd.demoFlags.register(fs)
	fs.StringVar(&cmd.out, "out", "", "output wav file (required)")
	fs.Float64Var(&cmd.seconds, "seconds", 2, "length of the rendered audio")
	fs.IntVar(&cmd.bitDepth, "depth", 16, "wav bit depth: 16 or 32")
}

func (cmd *renderCommand) Run() error {
	if cmd.out == "" {
		return fmt.Errorf("missing -out required flag")
	}
	e, err := cmd.build(2)
	if err != nil {
		return err
	}
	blocks := int(cmd.seconds * float64(cmd.sampleRate) / float64(cmd.blockSize))
	if blocks < 1 {
		blocks = 1
	}
	if err := wav.Render(e, cmd.out, blocks, signal.BitDepth(cmd.bitDepth)); err != nil {
		return err
	}
	fmt.Printf("Rendered %d blocks to %s\n", blocks, cmd.out)
	return nil
}
