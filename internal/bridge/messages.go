// Package bridge connects display clients to a session: it decodes their
// commands, performs them and sends events back.
package bridge

import (
	"github.com/daikw/judy/internal/avatar"
	"github.com/daikw/judy/internal/character"
)

// Command types sent by display clients
const (
	CmdGetCharacters   = "getCharacters"
	CmdSelectCharacter = "selectCharacter"
	CmdGetFrameMap     = "getFrameMap"
	CmdGetFrameImage   = "getFrameImage"
	CmdSetState        = "setState"
	CmdChatMessage     = "chatMessage"
	CmdPetMessage      = "petMessage"
	CmdSetVolume       = "setVolume"
	CmdActivity        = "activity"
)

// Event types sent to display clients
const (
	EvtCharactersLoaded  = "charactersLoaded"
	EvtCharacterSelected = "characterSelected"
	EvtStateChanged      = "stateChanged"
	EvtFrameMap          = "frameMap"
	EvtFrameImage        = "frameImage"
	EvtChatResponse      = "chatResponse"
	EvtVolumeUpdate      = "volumeUpdate"
	EvtError             = "error"
	EvtMotivation        = "motivation"
)

// Command is a message from a display client. Only the fields of its type
// are set.
type Command struct {
	Type        string   `json:"type"`
	CharacterID string   `json:"characterId,omitempty"`
	FrameName   string   `json:"frameName,omitempty"`
	State       string   `json:"state,omitempty"`
	Text        string   `json:"text,omitempty"`
	Volume      *float64 `json:"volume,omitempty"`
	Characters  int      `json:"characters,omitempty"`
}

// Event is a message to display clients
type Event interface {
	EventType() string
}

// CharacterSummary is what the character picker shows
type CharacterSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

type CharactersLoaded struct {
	Type       string             `json:"type"`
	Characters []CharacterSummary `json:"characters"`
}

func (e CharactersLoaded) EventType() string { return e.Type }

// NewCharactersLoaded summarizes defs
func NewCharactersLoaded(defs []*character.Definition) CharactersLoaded {
	summaries := make([]CharacterSummary, 0, len(defs))
	for _, def := range defs {
		summaries = append(summaries, CharacterSummary{
			ID:          def.ID,
			DisplayName: def.Label(),
			Description: def.Description,
		})
	}
	return CharactersLoaded{Type: EvtCharactersLoaded, Characters: summaries}
}

type CharacterSelected struct {
	Type      string                `json:"type"`
	Character *character.Definition `json:"character"`
	FrameMap  character.FrameMap    `json:"frameMap"`
}

func (e CharacterSelected) EventType() string { return e.Type }

func NewCharacterSelected(def *character.Definition) CharacterSelected {
	return CharacterSelected{Type: EvtCharacterSelected, Character: def, FrameMap: def.FrameMapFor()}
}

// StateChanged carries the frame map of the active character, or null when
// no character is selected
type StateChanged struct {
	Type     string             `json:"type"`
	State    avatar.State       `json:"state"`
	FrameMap character.FrameMap `json:"frameMap"`
}

func (e StateChanged) EventType() string { return e.Type }

type FrameMapEvent struct {
	Type        string             `json:"type"`
	CharacterID string             `json:"characterId"`
	FrameMap    character.FrameMap `json:"frameMap"`
}

func (e FrameMapEvent) EventType() string { return e.Type }

type FrameImage struct {
	Type        string `json:"type"`
	CharacterID string `json:"characterId"`
	FrameName   string `json:"frameName"`
	ImageURL    string `json:"imageUrl"`
}

func (e FrameImage) EventType() string { return e.Type }

type ChatResponse struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (e ChatResponse) EventType() string { return e.Type }

type VolumeUpdate struct {
	Type   string  `json:"type"`
	Volume float64 `json:"volume"`
}

func (e VolumeUpdate) EventType() string { return e.Type }

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e ErrorEvent) EventType() string { return e.Type }

func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: EvtError, Message: message}
}

type Motivation struct {
	Type    string `json:"type"`
	Trigger string `json:"trigger"`
	Message string `json:"message"`
}

func (e Motivation) EventType() string { return e.Type }
