// Package character manages the directory-backed catalog of characters.
package character

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store loads character records from <dir>/<id>/character.json and keeps
// the parsed catalog in memory
type Store struct {
	dir string

	mu         sync.RWMutex
	characters map[string]*Definition
}

// NewStore creates a store for the given catalog directory and loads it
func NewStore(dir string) (*Store, error) {
	s := &Store{
		dir:        dir,
		characters: make(map[string]*Definition),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the catalog directory
func (s *Store) Dir() string {
	return s.dir
}

// Reload rereads every character directory. Records that fail to parse are
// skipped with a warning.
func (s *Store) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("dir", s.dir).Msg("Characters directory does not exist")
			s.mu.Lock()
			s.characters = make(map[string]*Definition)
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read characters directory: %w", err)
	}

	characters := make(map[string]*Definition)
	for _, entry := range entries {
		if !entry.IsDir() || ValidateName(entry.Name()) != nil {
			continue
		}
		def, err := s.Load(entry.Name())
		if err != nil {
			log.Warn().Err(err).Str("character", entry.Name()).Msg("Skipping character")
			continue
		}
		characters[def.ID] = def
	}

	s.mu.Lock()
	s.characters = characters
	s.mu.Unlock()

	log.Debug().Int("count", len(characters)).Msg("Loaded characters")
	return nil
}

// Load reads a single record from disk without touching the cache
func (s *Store) Load(id string) (*Definition, error) {
	if err := ValidateName(id); err != nil {
		return nil, err
	}

	path := s.recordPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read character %s: %w", id, err)
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse character %s: %w", id, err)
	}

	if def.ID != id {
		if def.ID != "" {
			log.Warn().Str("declared", def.ID).Str("directory", id).Msg("Character id does not match its directory, using directory name")
		}
		def.ID = id
	}

	return &def, nil
}

// Get returns a cached character
func (s *Store) Get(id string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.characters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return def.clone(), nil
}

// List returns enabled characters sorted by id
func (s *Store) List() []*Definition {
	return s.collect(true)
}

// All returns every character, enabled or not, sorted by id
func (s *Store) All() []*Definition {
	return s.collect(false)
}

func (s *Store) collect(enabledOnly bool) []*Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]*Definition, 0, len(s.characters))
	for _, def := range s.characters {
		if enabledOnly && !def.Enabled {
			continue
		}
		defs = append(defs, def.clone())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// Create writes a new character record and reloads the catalog
func (s *Store) Create(def Definition) error {
	if err := ValidateName(def.ID); err != nil {
		return err
	}
	if _, err := os.Stat(s.recordPath(def.ID)); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, def.ID)
	}

	if err := os.MkdirAll(filepath.Join(s.dir, def.ID, FramesDirName), DirPermission); err != nil {
		return fmt.Errorf("failed to create character directory: %w", err)
	}
	if err := s.write(&def); err != nil {
		return err
	}

	log.Info().Str("character", def.ID).Msg("Created character")
	return s.Reload()
}

// Update replaces an existing character record and reloads the catalog
func (s *Store) Update(def Definition) error {
	if _, err := s.Load(def.ID); err != nil {
		return err
	}
	if err := s.write(&def); err != nil {
		return err
	}

	log.Info().Str("character", def.ID).Msg("Updated character")
	return s.Reload()
}

// SetEnabled toggles whether a character is offered for selection
func (s *Store) SetEnabled(id string, enabled bool) error {
	def, err := s.Load(id)
	if err != nil {
		return err
	}
	def.Enabled = enabled
	return s.Update(*def)
}

// FrameMap returns the resolved frames of a character. Unknown characters get
// the default frame names so the display can still render something.
func (s *Store) FrameMap(id string) FrameMap {
	def, err := s.Get(id)
	if err != nil {
		if def, err = s.Load(id); err != nil {
			log.Debug().Err(err).Str("character", id).Msg("Using default frame map")
			return DefaultFrameMap()
		}
	}
	return def.FrameMapFor()
}

func (s *Store) write(def *Definition) error {
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}
	if err := os.WriteFile(s.recordPath(def.ID), data, FilePermission); err != nil {
		return fmt.Errorf("failed to write character: %w", err)
	}
	return nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id, RecordFileName)
}

// IsNotFound reports whether err means the character does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
