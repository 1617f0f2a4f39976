package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// State is what judy remembers between runs. It never holds credentials.
type State struct {
	CurrentCharacter string  `mapstructure:"current_character"`
	Volume           float64 `mapstructure:"volume"`
}

// StateFile persists State as JSON
type StateFile struct {
	path string

	mu    sync.Mutex
	state State
}

// OpenState reads the state file at path (~/.judy/state.json when empty).
// A missing file yields the defaults.
func OpenState(path string) (*StateFile, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, StateFileName)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("current_character", "")
	v.SetDefault("volume", 1.0)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read state file: %w", err)
		}
		log.Debug().Str("path", path).Msg("No state file found, starting fresh")
	}

	var state State
	if err := v.Unmarshal(&state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	state.Volume = ClampVolume(state.Volume)

	return &StateFile{path: path, state: state}, nil
}

// Path returns the state file location
func (f *StateFile) Path() string {
	return f.path
}

// Get returns the current state
func (f *StateFile) Get() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetCharacter remembers the selected character
func (f *StateFile) SetCharacter(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.CurrentCharacter = id
	return f.save()
}

// SetVolume remembers the playback volume, clamped to 0.0-1.0
func (f *StateFile) SetVolume(volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.Volume = ClampVolume(volume)
	return f.save()
}

func (f *StateFile) save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	v := viper.New()
	v.Set("current_character", f.state.CurrentCharacter)
	v.Set("volume", f.state.Volume)
	if err := v.WriteConfigAs(f.path); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	log.Debug().Str("path", f.path).Msg("Saved state")
	return nil
}

// ClampVolume limits v to 0.0-1.0
func ClampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
