package bridge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/daikw/judy/internal/avatar"
	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/chat"
	"github.com/daikw/judy/internal/session"
	"github.com/daikw/judy/internal/voice"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, turns []chat.Turn) (string, error) {
	return g.reply, g.err
}

type stubSynth struct{}

func (stubSynth) Synthesize(ctx context.Context, text, voiceID string, speed float64) (*voice.Speech, error) {
	return &voice.Speech{Audio: []byte("a"), Format: "mp3", Duration: 20 * time.Millisecond}, nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEmitter) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingEmitter) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recordingEmitter) ofType(t string) []Event {
	var out []Event
	for _, e := range r.all() {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func newTestSession(t *testing.T, gen chat.Generator) *session.Session {
	t.Helper()
	dir := t.TempDir()
	for _, def := range []character.Definition{
		{ID: "judy", DisplayName: "Judy", Description: "A cheerful helper", VoiceID: "voice-judy", SystemPrompt: "You are Judy.", Enabled: true,
			Frames: character.FrameMap{avatar.Idle: "judy_idle.png"}},
		{ID: "amy", DisplayName: "Amy", VoiceID: "voice-amy", SystemPrompt: "You are Amy.", Enabled: true},
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, def.ID, character.FramesDirName), 0755))
		data, err := json.Marshal(def)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, def.ID, character.RecordFileName), data, 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "judy", character.FramesDirName, "judy_idle.png"), []byte("png"), 0644))

	store, err := character.NewStore(dir)
	require.NoError(t, err)

	return session.New(chat.NewClient(gen, ""), store, stubSynth{}, voice.SilentPlayer{}, avatar.NewMachine(),
		session.Config{Tick: 5 * time.Millisecond, PetDuration: 100 * time.Millisecond, Volume: 1, Reading: voice.DefaultReadingOptions()})
}
