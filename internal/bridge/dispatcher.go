package bridge

import (
	"context"
	"strings"
	"sync"

	"github.com/daikw/judy/internal/avatar"
	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/motivation"
	"github.com/daikw/judy/internal/session"
	"github.com/rs/zerolog/log"
)

// Emitter delivers events to display clients
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(event Event) { f(event) }

// Dispatcher performs commands against a session
type Dispatcher struct {
	session *session.Session
	emitter Emitter
	tracker *motivation.Tracker

	// background chat submissions
	wg sync.WaitGroup
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithTracker feeds activity commands to a motivation tracker
func WithTracker(t *motivation.Tracker) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracker = t
	}
}

// NewDispatcher creates a dispatcher and subscribes to the session's avatar
// state changes
func NewDispatcher(s *session.Session, emitter Emitter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{session: s, emitter: emitter}
	for _, opt := range opts {
		opt(d)
	}
	s.Machine().OnChange(d.stateChanged)
	return d
}

func (d *Dispatcher) stateChanged(state avatar.State) {
	var frames character.FrameMap
	if id := d.session.Persona().CharacterID; id != "" {
		frames = d.session.Store().FrameMap(id)
	}
	d.emitter.Emit(StateChanged{Type: EvtStateChanged, State: state, FrameMap: frames})
}

// Handle performs cmd. Failures are reported as error events. Chat messages
// are answered in the background so the caller's read loop keeps going.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command) {
	log.Debug().Str("type", cmd.Type).Msg("Handling command")

	switch cmd.Type {
	case CmdGetCharacters:
		d.emitter.Emit(NewCharactersLoaded(d.session.Store().List()))

	case CmdSelectCharacter:
		def, err := d.session.SelectCharacter(cmd.CharacterID)
		if err != nil {
			log.Warn().Err(err).Str("character", cmd.CharacterID).Msg("Failed to switch character")
			d.emitter.Emit(NewError(Describe(err)))
			return
		}
		d.emitter.Emit(NewCharacterSelected(def))

	case CmdGetFrameMap:
		id := d.characterOrActive(cmd.CharacterID)
		d.emitter.Emit(FrameMapEvent{Type: EvtFrameMap, CharacterID: id, FrameMap: d.session.Store().FrameMap(id)})

	case CmdGetFrameImage:
		id := d.characterOrActive(cmd.CharacterID)
		img := d.session.Store().FrameImage(id, cmd.FrameName)
		d.emitter.Emit(FrameImage{Type: EvtFrameImage, CharacterID: id, FrameName: cmd.FrameName, ImageURL: img.DataURL()})

	case CmdSetState:
		state, err := avatar.ParseState(cmd.State)
		if err != nil {
			d.emitter.Emit(NewError(err.Error()))
			return
		}
		d.session.Machine().Set(state)

	case CmdChatMessage:
		text := strings.TrimSpace(cmd.Text)
		if text == "" {
			d.emitter.Emit(NewError("Message is empty."))
			return
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.chat(ctx, text)
		}()

	case CmdPetMessage:
		d.session.Pet()

	case CmdSetVolume:
		if cmd.Volume == nil {
			d.emitter.Emit(NewError("Volume is missing."))
			return
		}
		d.emitter.Emit(VolumeUpdate{Type: EvtVolumeUpdate, Volume: d.session.SetVolume(*cmd.Volume)})

	case CmdActivity:
		if d.tracker != nil {
			d.tracker.RecordActivity(cmd.Characters)
		}

	default:
		log.Warn().Str("type", cmd.Type).Msg("Unknown command type")
		d.emitter.Emit(NewError("Unknown command type: " + cmd.Type))
	}
}

func (d *Dispatcher) chat(ctx context.Context, text string) {
	_, err := d.session.Submit(ctx, text, func(reply string) {
		d.emitter.Emit(ChatResponse{Type: EvtChatResponse, Text: reply})
	})
	if err != nil {
		log.Error().Err(err).Msg("Chat request failed")
		d.emitter.Emit(NewError(Describe(err)))
	}
}

// Motivate forwards a nudge to display clients
func (d *Dispatcher) Motivate(trigger motivation.Trigger, message string) {
	d.emitter.Emit(Motivation{Type: EvtMotivation, Trigger: string(trigger), Message: message})
}

// Wait blocks until background chat submissions have finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) characterOrActive(id string) string {
	if id != "" {
		return id
	}
	return d.session.Persona().CharacterID
}
