package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daikw/judy/internal/settings"
	"github.com/urfave/cli/v3"
)

func handleConfig(ctx context.Context, c *cli.Command) error {
	if c.Bool("example") {
		fmt.Println(settings.GenerateExample())
		return nil
	}

	if c.Bool("init") {
		return initSettings(c.String("config"))
	}

	s, err := loadSettings(c)
	if err != nil {
		return err
	}

	out, err := s.MaskSecrets().JSON()
	if err != nil {
		return err
	}

	if src := s.Source(); src != "" {
		fmt.Printf("# %s\n", src)
	} else {
		fmt.Println("# no settings file, showing defaults and environment")
	}
	fmt.Println(out)
	return nil
}

func initSettings(path string) error {
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Settings already exist at %s\n", path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(settings.GenerateExample()+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("Export GEMINI_API_KEY and ELEVENLABS_API_KEY, or edit the file directly.")
	return nil
}
