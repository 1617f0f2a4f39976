// Package session ties the conversation, speech and avatar together for the
// active character.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/daikw/judy/internal/avatar"
	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/chat"
	"github.com/daikw/judy/internal/transcript"
	"github.com/daikw/judy/internal/voice"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNoCharacters is returned by Restore when the catalog has nothing enabled
var ErrNoCharacters = errors.New("no characters available")

// Synthesizer renders text to audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, speed float64) (*voice.Speech, error)
}

// Recorder archives completed exchanges
type Recorder interface {
	Record(ctx context.Context, e transcript.Entry) error
}

// StateSaver persists the user's selections
type StateSaver interface {
	SetCharacter(id string) error
	SetVolume(volume float64) error
}

// Persona is the active character's voice and prompt
type Persona struct {
	CharacterID  string
	DisplayName  string
	VoiceID      string
	SystemPrompt string
}

// Config holds timing and speech parameters
type Config struct {
	Tick        time.Duration
	PetDuration time.Duration
	Speed       float64
	Reading     voice.ReadingOptions
	Volume      float64
}

// Session is one user's conversation with the active character
type Session struct {
	id      string
	chat    *chat.Client
	store   *character.Store
	synth   Synthesizer
	player  voice.Player
	machine *avatar.Machine
	cfg     Config

	recorder Recorder
	saver    StateSaver

	// turn serializes submissions and speech
	turn sync.Mutex

	mu      sync.RWMutex
	persona Persona
	volume  float64
}

// Option configures a Session
type Option func(*Session)

// WithRecorder archives every exchange
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithStateSaver persists character and volume changes
func WithStateSaver(saver StateSaver) Option {
	return func(s *Session) {
		s.saver = saver
	}
}

// New creates a session. No character is active until SelectCharacter or
// Restore is called.
func New(client *chat.Client, store *character.Store, synth Synthesizer, player voice.Player, machine *avatar.Machine, cfg Config, opts ...Option) *Session {
	if cfg.Tick <= 0 {
		cfg.Tick = avatar.DefaultTick
	}
	if cfg.PetDuration <= 0 {
		cfg.PetDuration = avatar.DefaultPetDuration
	}

	s := &Session{
		id:      uuid.NewString(),
		chat:    client,
		store:   store,
		synth:   synth,
		player:  player,
		machine: machine,
		cfg:     cfg,
		volume:  clampVolume(cfg.Volume),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ID identifies the session in the transcript archive
func (s *Session) ID() string {
	return s.id
}

// Machine returns the avatar state machine
func (s *Session) Machine() *avatar.Machine {
	return s.machine
}

// Store returns the character catalog
func (s *Session) Store() *character.Store {
	return s.store
}

// Persona returns the active character's voice and prompt
func (s *Session) Persona() Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persona
}

// History returns the current conversation
func (s *Session) History() []chat.Turn {
	return s.chat.History()
}

// SelectCharacter makes id the active character. The voice, prompt and
// conversation switch together; on error nothing changes. A switch requested
// during a turn waits until that turn has been spoken.
func (s *Session) SelectCharacter(id string) (*character.Definition, error) {
	def, err := s.store.Load(id)
	if err != nil {
		return nil, err
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.Lock()
	s.persona = Persona{
		CharacterID:  def.ID,
		DisplayName:  def.Label(),
		VoiceID:      def.VoiceID,
		SystemPrompt: def.SystemPrompt,
	}
	s.chat.Reset(def.SystemPrompt)
	s.mu.Unlock()

	s.machine.Reset()

	if s.saver != nil {
		if err := s.saver.SetCharacter(def.ID); err != nil {
			log.Warn().Err(err).Msg("Failed to save current character")
		}
	}

	log.Info().Str("character", def.ID).Msg("Switched character")
	return def, nil
}

// Restore selects the saved character, or the first enabled one when the
// saved id is empty or no longer available
func (s *Session) Restore(saved string) (*character.Definition, error) {
	if saved != "" {
		if def, err := s.store.Get(saved); err == nil && def.Enabled {
			return s.SelectCharacter(saved)
		}
		log.Warn().Str("character", saved).Msg("Saved character is not available")
	}

	available := s.store.List()
	if len(available) == 0 {
		return nil, ErrNoCharacters
	}
	return s.SelectCharacter(available[0].ID)
}

// Submit sends text to the model, hands the reply to onReply as soon as it
// arrives, then speaks it. The avatar thinks while waiting and returns to
// Idle when speech ends or anything fails.
func (s *Session) Submit(ctx context.Context, text string, onReply func(string)) (string, error) {
	s.turn.Lock()
	defer s.turn.Unlock()

	p := s.Persona()
	s.machine.Set(avatar.Thinking)

	reply, err := s.chat.Ask(ctx, text)
	if err != nil {
		s.machine.Reset()
		return "", err
	}

	s.record(ctx, p, chat.RoleUser, text)
	s.record(ctx, p, chat.RoleAssistant, reply)

	if onReply != nil {
		onReply(reply)
	}

	if err := s.speak(ctx, p, reply); err != nil {
		return reply, err
	}
	return reply, nil
}

// Speak reads text aloud with the active voice while the avatar talks
func (s *Session) Speak(ctx context.Context, text string) error {
	s.turn.Lock()
	defer s.turn.Unlock()

	return s.speak(ctx, s.Persona(), text)
}

func (s *Session) speak(ctx context.Context, p Persona, text string) error {
	spoken := voice.PrepareText(text, s.cfg.Reading)
	if spoken == "" {
		s.machine.Reset()
		return nil
	}

	speech, err := s.synth.Synthesize(ctx, spoken, p.VoiceID, s.cfg.Speed)
	if err != nil {
		s.machine.Reset()
		return err
	}

	log.Debug().
		Str("character", p.CharacterID).
		Dur("duration", speech.Duration).
		Msg("Speaking")

	s.machine.StartTalking(s.cfg.Tick)
	playErr := s.player.Play(ctx, speech, s.Volume())
	s.machine.Reset()

	if playErr != nil {
		return fmt.Errorf("failed to play speech: %w", playErr)
	}
	return nil
}

// Pet makes the avatar happy for a moment
func (s *Session) Pet() {
	s.machine.Pet(s.cfg.PetDuration)
}

// SetVolume changes playback volume and returns the clamped value
func (s *Session) SetVolume(volume float64) float64 {
	volume = clampVolume(volume)

	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()

	if s.saver != nil {
		if err := s.saver.SetVolume(volume); err != nil {
			log.Warn().Err(err).Msg("Failed to save volume")
		}
	}
	return volume
}

// Volume returns the playback volume
func (s *Session) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

func (s *Session) record(ctx context.Context, p Persona, role chat.Role, text string) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(ctx, transcript.Entry{
		SessionID:   s.id,
		CharacterID: p.CharacterID,
		Role:        string(role),
		Text:        text,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record transcript")
	}
}
