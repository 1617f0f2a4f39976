package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/daikw/judy/internal/avatar"
	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/chat"
	"github.com/daikw/judy/internal/session"
	"github.com/daikw/judy/internal/settings"
	"github.com/daikw/judy/internal/transcript"
	"github.com/daikw/judy/internal/voice"
	"github.com/daikw/judy/internal/voice/provider"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// app holds everything a conversational command needs
type app struct {
	settings *settings.Settings
	state    *settings.StateFile
	store    *character.Store
	session  *session.Session
	recorder *transcript.Recorder
}

func loadSettings(c *cli.Command) (*settings.Settings, error) {
	s, err := settings.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.Bool("mute") {
		s.Mute = true
	}
	return s, nil
}

func newSynthesizer(ctx context.Context, s *settings.Settings) (*voice.Synthesizer, error) {
	p, err := provider.NewFactory().CreateProvider(ctx, s.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", s.Voice.Provider, err)
	}
	return voice.NewSynthesizer(p, s.SynthesizeOptions()), nil
}

// buildApp wires settings, catalog, model, voice and session, then restores
// the saved character
func buildApp(ctx context.Context, c *cli.Command) (*app, error) {
	s, err := loadSettings(c)
	if err != nil {
		return nil, err
	}
	for _, problem := range s.Validate() {
		log.Warn().Msg(problem)
	}

	state, err := settings.OpenState("")
	if err != nil {
		return nil, err
	}

	store, err := character.NewStore(s.CharactersDir)
	if err != nil {
		return nil, err
	}

	gen, err := chat.NewGeminiGenerator(ctx, s.GeminiAPIKey, s.GeminiModel)
	if err != nil {
		return nil, err
	}

	synth, err := newSynthesizer(ctx, s)
	if err != nil {
		return nil, err
	}

	a := &app{settings: s, state: state, store: store}
	opts := []session.Option{session.WithStateSaver(state)}

	if s.TranscriptPath != "" {
		rec, err := transcript.Open(s.TranscriptPath)
		if err != nil {
			log.Warn().Err(err).Msg("Transcript archive unavailable, conversations will not be saved")
		} else {
			a.recorder = rec
			opts = append(opts, session.WithRecorder(rec))
		}
	}

	saved := state.Get()
	a.session = session.New(
		chat.NewClient(gen, ""),
		store,
		synth,
		voice.NewPlayer(s.Mute),
		avatar.NewMachine(),
		session.Config{
			Tick:        s.Avatar.Tick,
			PetDuration: s.Avatar.PetDuration,
			Speed:       s.Voice.Speed,
			Reading:     s.ReadingOptions(),
			Volume:      saved.Volume,
		},
		opts...,
	)

	if _, err := a.session.Restore(saved.CurrentCharacter); err != nil {
		if !errors.Is(err, session.ErrNoCharacters) {
			a.Close()
			return nil, err
		}
		log.Warn().Str("dir", store.Dir()).Msg("No characters found, create one with 'judy characters create <id>'")
	}

	return a, nil
}

func (a *app) Close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close transcript archive")
		}
	}
}
