package main

import (
	"context"
	"time"

	"github.com/daikw/judy/internal/bridge"
	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/motivation"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

const (
	catalogDebounce = 500 * time.Millisecond
	motivationCheck = time.Minute
)

func handleServe(ctx context.Context, c *cli.Command) error {
	a, err := buildApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := c.String("listen")
	if addr == "" {
		addr = a.settings.Listen
	}

	hub := bridge.NewHub()

	var (
		dispatcher *bridge.Dispatcher
		tracker    *motivation.Tracker
		opts       []bridge.DispatcherOption
	)
	if a.settings.Motivation.Enabled && !c.Bool("no-motivation") {
		tracker = motivation.NewTracker(a.settings.MotivationConfig(), func(trigger motivation.Trigger, message string) {
			dispatcher.Motivate(trigger, message)
		})
		opts = append(opts, bridge.WithTracker(tracker))
	}

	dispatcher = bridge.NewDispatcher(a.session, hub, opts...)
	hub.SetHandler(dispatcher.Handle)

	watcher, err := character.NewWatcher(a.store, func(defs []*character.Definition) {
		hub.Emit(bridge.NewCharactersLoaded(defs))
	}, catalogDebounce)
	if err != nil {
		log.Warn().Err(err).Msg("Character hot reload disabled")
	} else {
		defer watcher.Close()
	}

	if tracker != nil {
		tracker.SessionStart()
		go tracker.Run(ctx, motivationCheck)
	}

	err = bridge.NewServer(addr, hub).Run(ctx)
	dispatcher.Wait()
	return err
}
