package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/settings"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func openStore(c *cli.Command) (*character.Store, error) {
	s, err := loadSettings(c)
	if err != nil {
		return nil, err
	}
	return character.NewStore(s.CharactersDir)
}

func requireID(c *cli.Command) (string, error) {
	id := c.Args().Get(0)
	if id == "" {
		return "", fmt.Errorf("character id is required")
	}
	return id, nil
}

func handleCharactersList(ctx context.Context, c *cli.Command) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}

	defs := store.List()
	if c.Bool("all") {
		defs = store.All()
	}
	if len(defs) == 0 {
		fmt.Printf("No characters found in %s. Create one with 'judy characters create <id>'\n", store.Dir())
		return nil
	}

	var current string
	if state, err := settings.OpenState(""); err == nil {
		current = state.Get().CurrentCharacter
	}

	fmt.Println("Available characters:")
	for _, def := range defs {
		line := fmt.Sprintf("%s (%s)", def.ID, def.Label())
		switch {
		case def.ID == current:
			color.Green("  * %s", line)
		case !def.Enabled:
			color.New(color.Faint).Printf("    %s [disabled]\n", line)
		default:
			fmt.Printf("    %s\n", line)
		}
		if def.Description != "" {
			fmt.Printf("      %s\n", def.Description)
		}
	}
	return nil
}

func handleCharactersShow(ctx context.Context, c *cli.Command) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}

	def, err := store.Load(id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode character: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func handleCharactersCreate(ctx context.Context, c *cli.Command) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}

	def := character.Definition{
		ID:           id,
		Name:         id,
		DisplayName:  c.String("display-name"),
		Description:  c.String("description"),
		VoiceID:      c.String("voice"),
		SystemPrompt: c.String("prompt"),
		Enabled:      true,
	}
	if def.SystemPrompt == "" {
		def.SystemPrompt = fmt.Sprintf("You are %s, a friendly companion. Keep answers short and conversational.", def.Label())
	}

	if err := store.Create(def); err != nil {
		return err
	}

	fmt.Printf("Created character %s in %s\n", id, store.Dir())
	fmt.Printf("Add frame images (idle.png, talking.png, thinking.png, happy.png) to %s/%s/%s\n",
		store.Dir(), id, character.FramesDirName)
	return nil
}

func handleCharactersEnable(ctx context.Context, c *cli.Command) error {
	return setCharacterEnabled(c, true)
}

func handleCharactersDisable(ctx context.Context, c *cli.Command) error {
	return setCharacterEnabled(c, false)
}

func setCharacterEnabled(c *cli.Command, enabled bool) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}

	if err := store.SetEnabled(id, enabled); err != nil {
		return err
	}

	status := "enabled"
	if !enabled {
		status = "disabled"
	}
	fmt.Printf("Character %s %s\n", id, status)
	return nil
}
