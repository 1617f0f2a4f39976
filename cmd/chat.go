package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/daikw/judy/internal/avatar"
	"github.com/daikw/judy/internal/bridge"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	speakerColor = color.New(color.FgMagenta, color.Bold)
	promptColor  = color.New(color.FgCyan)
	hintColor    = color.New(color.Faint)
)

func handleChat(ctx context.Context, c *cli.Command) error {
	a, err := buildApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if id := c.String("character"); id != "" {
		if _, err := a.session.SelectCharacter(id); err != nil {
			return fmt.Errorf("failed to select character %s: %w", id, err)
		}
	}

	a.session.Machine().OnChange(func(s avatar.State) {
		log.Debug().Str("state", s.String()).Msg("Avatar state")
	})

	if p := a.session.Persona(); p.CharacterID != "" {
		hintColor.Printf("Talking to %s. Commands: /pet, /switch <id>, /characters, /quit\n", p.DisplayName)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue

		case line == "/quit" || line == "/exit":
			return nil

		case line == "/pet":
			a.session.Pet()
			speakerColor.Printf("%s: ", a.session.Persona().DisplayName)
			fmt.Println("♥")

		case line == "/characters":
			active := a.session.Persona().CharacterID
			for _, def := range a.store.List() {
				marker := " "
				if def.ID == active {
					marker = "*"
				}
				fmt.Printf("%s %s (%s)\n", marker, def.ID, def.Label())
			}

		case strings.HasPrefix(line, "/switch"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/switch"))
			def, err := a.session.SelectCharacter(id)
			if err != nil {
				color.Red("%s", bridge.Describe(err))
				continue
			}
			hintColor.Printf("Now talking to %s. The conversation was cleared.\n", def.Label())

		default:
			if a.session.Persona().CharacterID == "" {
				color.Red("No character is selected. Use /switch <id>.")
				continue
			}
			_, err := a.session.Submit(ctx, line, func(reply string) {
				speakerColor.Printf("%s> ", a.session.Persona().DisplayName)
				fmt.Println(reply)
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				color.Red("%s", bridge.Describe(err))
			}
		}
	}

	return scanner.Err()
}
