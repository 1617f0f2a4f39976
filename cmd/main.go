package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "judy",
		Usage: "Judy - an animated companion that chats and talks back",
		Description: `judy runs a character avatar backed by a generative model and a TTS voice.
Display clients connect over WebSocket to show the avatar; the terminal REPL and
the MCP server drive the same conversation.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Settings file (default: ~/.judy/settings.json)",
			},
			&cli.BoolFlag{
				Name:  "mute",
				Usage: "Do not play audio; the avatar still animates",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the avatar bridge for display clients",
				Action: handleServe,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "listen",
						Aliases: []string{"l"},
						Usage:   "Listen address (default from settings)",
					},
					&cli.BoolFlag{
						Name:  "no-motivation",
						Usage: "Disable motivational nudges",
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Chat with the active character in the terminal",
				Action: handleChat,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "character",
						Usage: "Character to start with",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Run as an MCP server on stdio",
				Action: handleMCP,
			},
			{
				Name:    "characters",
				Aliases: []string{"chars"},
				Usage:   "Manage the character catalog",
				Commands: []*cli.Command{
					{
						Name:    "list",
						Aliases: []string{"ls"},
						Usage:   "List characters",
						Action:  handleCharactersList,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:    "all",
								Aliases: []string{"a"},
								Usage:   "Include disabled characters",
							},
						},
					},
					{
						Name:      "show",
						Usage:     "Show a character record",
						ArgsUsage: "<id>",
						Action:    handleCharactersShow,
					},
					{
						Name:      "create",
						Usage:     "Create a character",
						ArgsUsage: "<id>",
						Action:    handleCharactersCreate,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "display-name", Usage: "Name shown in the picker"},
							&cli.StringFlag{Name: "description", Usage: "Short description"},
							&cli.StringFlag{Name: "voice", Usage: "TTS voice id"},
							&cli.StringFlag{Name: "prompt", Usage: "System prompt"},
						},
					},
					{
						Name:      "enable",
						Usage:     "Make a character selectable",
						ArgsUsage: "<id>",
						Action:    handleCharactersEnable,
					},
					{
						Name:      "disable",
						Usage:     "Hide a character from the picker",
						ArgsUsage: "<id>",
						Action:    handleCharactersDisable,
					},
				},
			},
			{
				Name:      "say",
				Usage:     "Speak text with a character voice (stdin when no text is given)",
				ArgsUsage: "[text]",
				Action:    handleSay,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "character",
						Usage: "Use this character's voice (default: the current one)",
					},
					&cli.StringFlag{
						Name:  "voice",
						Usage: "Voice ID or name (provider-specific), overrides --character",
					},
					&cli.Float64Flag{
						Name:  "speed",
						Usage: "Speech speed (default from settings)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write audio to this file instead of playing it",
					},
					&cli.BoolFlag{
						Name:  "list-voices",
						Usage: "List available voices for the configured provider",
					},
				},
			},
			{
				Name:      "duration",
				Usage:     "Estimate the playback length of an audio file",
				ArgsUsage: "<file>",
				Action:    handleDuration,
			},
			{
				Name:   "config",
				Usage:  "Show effective settings with secrets masked",
				Action: handleConfig,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "example",
						Usage: "Print an example settings file",
					},
					&cli.BoolFlag{
						Name:  "init",
						Usage: "Write the example settings file if none exists",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Check settings, characters and the voice provider",
				Action: handleStatus,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}
