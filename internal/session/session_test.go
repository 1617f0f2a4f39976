package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daikw/judy/internal/avatar"
	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/chat"
	"github.com/daikw/judy/internal/transcript"
	"github.com/daikw/judy/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls [][]chat.Turn
	reply func(turns []chat.Turn) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, turns []chat.Turn) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, turns)
	g.mu.Unlock()
	if g.reply != nil {
		return g.reply(turns)
	}
	return "Hello there!", nil
}

func (g *fakeGenerator) lastPayload() []chat.Turn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

type fakeSynth struct {
	mu     sync.Mutex
	voices []string
	texts  []string
	err    error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voiceID string, speed float64) (*voice.Speech, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = append(f.voices, voiceID)
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return &voice.Speech{Audio: []byte("audio"), Format: "mp3", Duration: 60 * time.Millisecond}, nil
}

type fakePlayer struct {
	mu      sync.Mutex
	volumes []float64
	during  []avatar.State
	machine *avatar.Machine
	wait    time.Duration
	err     error
	// called when playback ends
	onDone func()
}

func (p *fakePlayer) Play(ctx context.Context, speech *voice.Speech, volume float64) error {
	p.mu.Lock()
	p.volumes = append(p.volumes, volume)
	p.during = append(p.during, p.machine.State())
	p.mu.Unlock()
	time.Sleep(p.wait)
	if p.onDone != nil {
		p.onDone()
	}
	return p.err
}

type fakeSaver struct {
	mu         sync.Mutex
	characters []string
	volumes    []float64
}

func (f *fakeSaver) SetCharacter(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.characters = append(f.characters, id)
	return nil
}

func (f *fakeSaver) SetVolume(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, v)
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []transcript.Entry
}

func (r *fakeRecorder) Record(ctx context.Context, e transcript.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

type stateLog struct {
	mu     sync.Mutex
	states []avatar.State
}

func (l *stateLog) add(s avatar.State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) all() []avatar.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]avatar.State(nil), l.states...)
}

func newCatalog(t *testing.T, defs ...character.Definition) *character.Store {
	t.Helper()
	dir := t.TempDir()
	for _, def := range defs {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, def.ID), 0755))
		data, err := json.Marshal(def)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, def.ID, character.RecordFileName), data, 0644))
	}
	store, err := character.NewStore(dir)
	require.NoError(t, err)
	return store
}

type harness struct {
	session *Session
	gen     *fakeGenerator
	synth   *fakeSynth
	player  *fakePlayer
	saver   *fakeSaver
	rec     *fakeRecorder
	states  *stateLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newCatalog(t,
		character.Definition{ID: "amy", DisplayName: "Amy", VoiceID: "voice-amy", SystemPrompt: "You are Amy.", Enabled: true},
		character.Definition{ID: "judy", DisplayName: "Judy", VoiceID: "voice-judy", SystemPrompt: "You are Judy.", Enabled: true},
		character.Definition{ID: "off", VoiceID: "voice-off", Enabled: false},
	)

	machine := avatar.NewMachine()
	states := &stateLog{}
	machine.OnChange(states.add)

	h := &harness{
		gen:    &fakeGenerator{},
		synth:  &fakeSynth{},
		player: &fakePlayer{machine: machine, wait: 60 * time.Millisecond},
		saver:  &fakeSaver{},
		rec:    &fakeRecorder{},
		states: states,
	}
	client := chat.NewClient(h.gen, "")
	h.session = New(client, store, h.synth, h.player, machine,
		Config{Tick: 10 * time.Millisecond, PetDuration: 50 * time.Millisecond, Volume: 0.8, Reading: voice.ReadingOptions{Mode: voice.ModeFullText}},
		WithRecorder(h.rec), WithStateSaver(h.saver),
	)
	return h
}

func TestSession_SelectCharacter(t *testing.T) {
	h := newHarness(t)

	def, err := h.session.SelectCharacter("judy")
	require.NoError(t, err)
	assert.Equal(t, "judy", def.ID)

	p := h.session.Persona()
	assert.Equal(t, Persona{CharacterID: "judy", DisplayName: "Judy", VoiceID: "voice-judy", SystemPrompt: "You are Judy."}, p)
	assert.Equal(t, []string{"judy"}, h.saver.characters)
	assert.Equal(t, avatar.Idle, h.session.Machine().State())
}

func TestSession_SelectUnknownCharacterKeepsPersona(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.SelectCharacter("judy")
	require.NoError(t, err)

	_, err = h.session.SelectCharacter("ghost")
	assert.ErrorIs(t, err, character.ErrNotFound)
	assert.Equal(t, "voice-judy", h.session.Persona().VoiceID)
}

func TestSession_SwitchResetsConversation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.session.SelectCharacter("judy")
	require.NoError(t, err)
	_, err = h.session.Submit(ctx, "hi", nil)
	require.NoError(t, err)
	assert.Len(t, h.session.History(), 2)

	_, err = h.session.SelectCharacter("amy")
	require.NoError(t, err)
	assert.Empty(t, h.session.History())

	_, err = h.session.Submit(ctx, "who are you?", nil)
	require.NoError(t, err)

	payload := h.gen.lastPayload()
	require.Len(t, payload, 1)
	assert.Equal(t, "You are Amy.\n\nwho are you?", payload[0].Text)
	assert.Equal(t, []string{"voice-judy", "voice-amy"}, h.synth.voices)
}

func TestSession_SwitchIsAtomic(t *testing.T) {
	h := newHarness(t)
	voiceOf := map[string]string{"amy": "voice-amy", "judy": "voice-judy"}
	promptOf := map[string]string{"amy": "You are Amy.", "judy": "You are Judy."}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			id := "amy"
			if i%2 == 0 {
				id = "judy"
			}
			_, err := h.session.SelectCharacter(id)
			assert.NoError(t, err)
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				p := h.session.Persona()
				if p.CharacterID == "" {
					continue
				}
				assert.Equal(t, voiceOf[p.CharacterID], p.VoiceID)
				assert.Equal(t, promptOf[p.CharacterID], p.SystemPrompt)
			}
		}()
	}

	wg.Wait()
}

func TestSession_SwitchDuringTurnWaitsForSpeech(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.session.SelectCharacter("judy")
	require.NoError(t, err)

	h.gen.reply = func(turns []chat.Turn) (string, error) {
		time.Sleep(30 * time.Millisecond)
		return "I am Judy.", nil
	}

	var endPersona string
	h.player.onDone = func() {
		endPersona = h.session.Persona().CharacterID
	}

	switched := make(chan error, 1)
	var once sync.Once
	h.session.Machine().OnChange(func(s avatar.State) {
		h.states.add(s)
		if s == avatar.Thinking {
			once.Do(func() {
				go func() {
					_, err := h.session.SelectCharacter("amy")
					switched <- err
				}()
			})
		}
	})

	reply, err := h.session.Submit(ctx, "who are you?", nil)
	require.NoError(t, err)
	assert.Equal(t, "I am Judy.", reply)

	select {
	case err := <-switched:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("switch did not complete")
	}

	// the whole turn belongs to judy
	assert.Equal(t, "You are Judy.\n\nwho are you?", h.gen.lastPayload()[0].Text)
	assert.Equal(t, []string{"voice-judy"}, h.synth.voices)
	assert.Equal(t, "judy", endPersona)
	for _, e := range h.rec.entries {
		assert.Equal(t, "judy", e.CharacterID)
	}

	// and the switch applied afterwards
	assert.Equal(t, "amy", h.session.Persona().CharacterID)
	assert.Empty(t, h.session.History())
	assert.Equal(t, avatar.Idle, h.session.Machine().State())
}

func TestSession_SubmitLifecycle(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.SelectCharacter("judy")
	require.NoError(t, err)

	var delivered string
	reply, err := h.session.Submit(context.Background(), "hello", func(r string) {
		delivered = r
		assert.Equal(t, avatar.Thinking, h.session.Machine().State(), "reply is delivered before speech starts")
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", reply)
	assert.Equal(t, reply, delivered)

	states := h.states.all()
	require.NotEmpty(t, states)
	assert.Contains(t, states, avatar.Thinking)
	assert.Contains(t, states, avatar.Talking)
	assert.Equal(t, avatar.Idle, states[len(states)-1])
	assert.Equal(t, avatar.Idle, h.session.Machine().State())

	// the talking loop was running while the player played
	assert.Equal(t, []avatar.State{avatar.Talking}, h.player.during)
	assert.Equal(t, []float64{0.8}, h.player.volumes)

	// nothing is emitted once Submit has returned
	count := len(h.states.all())
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, h.states.all(), count)

	require.Len(t, h.rec.entries, 2)
	assert.Equal(t, "user", h.rec.entries[0].Role)
	assert.Equal(t, "assistant", h.rec.entries[1].Role)
	assert.Equal(t, "judy", h.rec.entries[1].CharacterID)
	assert.Equal(t, h.session.ID(), h.rec.entries[1].SessionID)
}

func TestSession_SubmitStripsMarkdownForSpeech(t *testing.T) {
	h := newHarness(t)
	h.gen.reply = func([]chat.Turn) (string, error) { return "**Great** question!", nil }

	reply, err := h.session.Submit(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "**Great** question!", reply)
	assert.Equal(t, []string{"Great question!"}, h.synth.texts)
}

func TestSession_SubmitProviderErrorReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.gen.reply = func([]chat.Turn) (string, error) {
		return "", chat.Permanent(errors.New("invalid api key"))
	}

	_, err := h.session.Submit(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, chat.ErrProviderError)
	assert.Equal(t, avatar.Idle, h.session.Machine().State())
	assert.Empty(t, h.synth.texts)
	assert.Empty(t, h.rec.entries)
}

func TestSession_SynthesisErrorReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.synth.err = fmt.Errorf("%w: quota", voice.ErrSynthesis)

	reply, err := h.session.Submit(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, voice.ErrSynthesis)
	assert.Equal(t, "Hello there!", reply, "the reply is still returned")
	assert.Equal(t, avatar.Idle, h.session.Machine().State())
	assert.NotContains(t, h.states.all(), avatar.Talking)
}

func TestSession_PlaybackErrorReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.player.err = errors.New("device busy")

	err := h.session.Speak(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "device busy"))
	assert.Equal(t, avatar.Idle, h.session.Machine().State())
}

func TestSession_SpeakEmptyTextSkipsSynthesis(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Speak(context.Background(), "```\ncode only\n```"))
	assert.Empty(t, h.synth.texts)
}

func TestSession_Restore(t *testing.T) {
	t.Run("saved character", func(t *testing.T) {
		h := newHarness(t)
		def, err := h.session.Restore("judy")
		require.NoError(t, err)
		assert.Equal(t, "judy", def.ID)
	})

	t.Run("missing saved character falls back to first enabled", func(t *testing.T) {
		h := newHarness(t)
		def, err := h.session.Restore("ghost")
		require.NoError(t, err)
		assert.Equal(t, "amy", def.ID)
	})

	t.Run("disabled saved character falls back", func(t *testing.T) {
		h := newHarness(t)
		def, err := h.session.Restore("off")
		require.NoError(t, err)
		assert.Equal(t, "amy", def.ID)
	})

	t.Run("empty catalog", func(t *testing.T) {
		store := newCatalog(t)
		s := New(chat.NewClient(&fakeGenerator{}, ""), store, &fakeSynth{}, voice.SilentPlayer{}, avatar.NewMachine(), Config{})
		_, err := s.Restore("")
		assert.ErrorIs(t, err, ErrNoCharacters)
	})
}

func TestSession_Pet(t *testing.T) {
	h := newHarness(t)
	h.session.Pet()
	assert.Equal(t, avatar.Happy, h.session.Machine().State())

	require.Eventually(t, func() bool {
		return h.session.Machine().State() == avatar.Idle
	}, time.Second, 10*time.Millisecond)
}

func TestSession_SetVolume(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 0.5, h.session.SetVolume(0.5))
	assert.Equal(t, 1.0, h.session.SetVolume(7))
	assert.Equal(t, 0.0, h.session.SetVolume(-2))
	assert.Equal(t, 0.0, h.session.Volume())
	assert.Equal(t, []float64{0.5, 1, 0}, h.saver.volumes)
}
