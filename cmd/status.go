package main

import (
	"context"
	"fmt"

	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/settings"
	"github.com/urfave/cli/v3"
)

func handleStatus(ctx context.Context, c *cli.Command) error {
	issues := 0

	s, err := loadSettings(c)
	if err != nil {
		return err
	}

	if src := s.Source(); src != "" {
		fmt.Printf("⚙️  Settings: %s\n", src)
	} else {
		fmt.Println("⚙️  Settings: (none, using defaults)")
	}
	for _, problem := range s.Validate() {
		fmt.Printf("❌ %s\n", problem)
		issues++
	}

	store, err := character.NewStore(s.CharactersDir)
	if err != nil {
		fmt.Printf("❌ Characters: %v\n", err)
		issues++
	} else {
		enabled := len(store.List())
		fmt.Printf("🎭 Characters: %d enabled, %d total (%s)\n", enabled, len(store.All()), store.Dir())
		if enabled == 0 {
			issues++
		}
	}

	if state, err := settings.OpenState(""); err == nil {
		st := state.Get()
		current := st.CurrentCharacter
		if current == "" {
			current = "(none)"
		}
		fmt.Printf("💾 Current character: %s, volume %.2f\n", current, st.Volume)
	}

	synth, err := newSynthesizer(ctx, s)
	if err != nil {
		fmt.Printf("❌ Voice: %v\n", err)
		issues++
	} else if synth.Provider().IsAvailable(ctx) {
		fmt.Printf("🔊 Voice: %s OK\n", synth.Provider().Name())
	} else {
		fmt.Printf("❌ Voice: %s is not reachable\n", synth.Provider().Name())
		issues++
	}

	if s.Mute {
		fmt.Println("🔇 Audio is muted")
	}

	fmt.Println("")
	if issues > 0 {
		fmt.Println("Recommended actions:")
		if s.GeminiAPIKey == "" {
			fmt.Println("  - Set GEMINI_API_KEY or run 'judy config --init'")
		}
		if store != nil && len(store.List()) == 0 {
			fmt.Println("  - Create a character with 'judy characters create <id>'")
		}
		return nil
	}

	fmt.Println("✅ All checks passed")
	return nil
}
