package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/settings"
	"github.com/daikw/judy/internal/voice"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func handleSay(ctx context.Context, c *cli.Command) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}

	synth, err := newSynthesizer(ctx, s)
	if err != nil {
		return err
	}

	if c.Bool("list-voices") {
		voices, err := synth.Provider().ListVoices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list voices: %w", err)
		}
		if len(voices) == 0 {
			fmt.Println("No voices available")
			return nil
		}

		fmt.Printf("Available voices for provider '%s':\n", synth.Provider().Name())
		for _, v := range voices {
			fmt.Printf("  - %s (%s) - %s\n", v.ID, v.Language, v.Description)
		}
		return nil
	}

	text := strings.Join(c.Args().Slice(), " ")
	if text == "" {
		log.Debug().Msg("Reading text from stdin")
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		text = string(data)
	}

	text = voice.PrepareText(text, s.ReadingOptions())
	if text == "" {
		return fmt.Errorf("no text to speak")
	}

	state, err := settings.OpenState("")
	if err != nil {
		return err
	}

	voiceID, err := resolveVoice(c, s, state)
	if err != nil {
		return err
	}

	speed := c.Float("speed")
	if speed <= 0 {
		speed = s.Voice.Speed
	}

	speech, err := synth.Synthesize(ctx, text, voiceID, speed)
	if err != nil {
		return err
	}
	log.Debug().Dur("duration", speech.Duration).Int("bytes", len(speech.Audio)).Msg("Synthesized speech")

	if output := c.String("output"); output != "" {
		if err := os.WriteFile(output, speech.Audio, 0644); err != nil {
			return fmt.Errorf("failed to write audio file: %w", err)
		}
		fmt.Printf("Wrote %s (%s)\n", output, speech.Duration)
		return nil
	}

	return voice.NewPlayer(s.Mute).Play(ctx, speech, state.Get().Volume)
}

// resolveVoice picks --voice, else the voice of --character, else the
// current character's voice. An empty result leaves the provider default.
func resolveVoice(c *cli.Command, s *settings.Settings, state *settings.StateFile) (string, error) {
	if v := c.String("voice"); v != "" {
		return v, nil
	}

	id := c.String("character")
	if id == "" {
		id = state.Get().CurrentCharacter
	}
	if id == "" {
		return "", nil
	}

	store, err := character.NewStore(s.CharactersDir)
	if err != nil {
		return "", err
	}
	def, err := store.Load(id)
	if err != nil {
		if c.String("character") == "" && character.IsNotFound(err) {
			log.Warn().Str("character", id).Msg("Saved character not found, using the default voice")
			return "", nil
		}
		return "", err
	}
	return def.VoiceID, nil
}

func handleDuration(ctx context.Context, c *cli.Command) error {
	path := c.Args().Get(0)
	if path == "" {
		return fmt.Errorf("audio file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	d, exact := voice.EstimateDuration(format, data)

	fmt.Printf("%s: %s", path, d)
	if !exact {
		fmt.Print(" (fallback estimate)")
	}
	fmt.Println()
	return nil
}
