package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"pipelined.dev/patch/portaudio"
)

type playCommand struct {
	demoFlags
	seconds float64
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play the demo patch through the default audio device"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	cmd.demoFlags.register(fs)
	fs.Float64Var(&cmd.seconds, "seconds", 5, "playback length, 0 plays until interrupted")
}

func (cmd *playCommand) Run() error {
	e, err := cmd.build(2)
	if err != nil {
		return err
	}
	player, err := portaudio.NewPlayer(e)
	if err != nil {
		return err
	}
	defer player.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cmd.seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cmd.seconds*float64(time.Second)))
		defer cancel()
	}

	fmt.Println("Playing, interrupt to stop")
	if err := player.Play(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
