package character

import (
	"errors"
	"fmt"
	"strings"

	"github.com/daikw/judy/internal/avatar"
)

const (
	RecordFileName   = "character.json"
	FramesDirName    = "frames"
	DefaultImageName = "default.png"

	// File permissions
	DirPermission  = 0755 // Directory permission (rwxr-xr-x)
	FilePermission = 0644 // File permission (rw-r--r--)
)

var (
	// ErrNotFound is returned for ids that are not in the catalog
	ErrNotFound = errors.New("character not found")
	// ErrExists is returned when creating an id that is already taken
	ErrExists = errors.New("character already exists")
	// ErrInvalidName is returned for ids or frame names that would escape the catalog
	ErrInvalidName = errors.New("invalid name")
)

// FrameMap maps an avatar state to a frame file name
type FrameMap map[avatar.State]string

// Definition is the record stored in <dir>/<id>/character.json
type Definition struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	DisplayName  string   `json:"displayName"`
	Description  string   `json:"description"`
	VoiceID      string   `json:"voiceid"`
	SystemPrompt string   `json:"systemPrompt"`
	Enabled      bool     `json:"enabled"`
	Frames       FrameMap `json:"frames,omitempty"`
}

// Label returns the name shown to users
func (d *Definition) Label() string {
	switch {
	case d.DisplayName != "":
		return d.DisplayName
	case d.Name != "":
		return d.Name
	default:
		return d.ID
	}
}

// FrameMapFor resolves a frame for every state. Undeclared states use <state>.png.
func (d *Definition) FrameMapFor() FrameMap {
	var declared FrameMap
	if d != nil {
		declared = d.Frames
	}
	return resolveFrames(declared)
}

// DefaultFrameMap returns the frames used when a character declares none
func DefaultFrameMap() FrameMap {
	return resolveFrames(nil)
}

func resolveFrames(declared FrameMap) FrameMap {
	frames := make(FrameMap, len(avatar.AllStates()))
	for _, state := range avatar.AllStates() {
		if name := strings.TrimSpace(declared[state]); name != "" {
			frames[state] = name
			continue
		}
		frames[state] = string(state) + ".png"
	}
	return frames
}

func (d *Definition) clone() *Definition {
	c := *d
	if d.Frames != nil {
		c.Frames = make(FrameMap, len(d.Frames))
		for k, v := range d.Frames {
			c.Frames[k] = v
		}
	}
	return &c
}

// ValidateName rejects ids and frame names that are empty or could traverse
// outside the catalog directory
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidName, name)
	}
	return nil
}
