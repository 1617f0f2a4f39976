// Package motivation sends encouraging nudges based on how long and how much
// the user has been working.
package motivation

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config controls when nudges fire
type Config struct {
	Interval          time.Duration `mapstructure:"interval"`
	CharThreshold     int           `mapstructure:"char_threshold"`
	InactiveThreshold time.Duration `mapstructure:"inactive_threshold"`
}

// DefaultConfig nudges every 15 minutes of activity or every 500 typed characters
func DefaultConfig() Config {
	return Config{
		Interval:          15 * time.Minute,
		CharThreshold:     500,
		InactiveThreshold: 2 * time.Minute,
	}
}

// Trigger identifies what caused a nudge
type Trigger string

const (
	TriggerSessionStart Trigger = "sessionStart"
	TriggerTimeSpent    Trigger = "timeSpent"
	TriggerCharacters   Trigger = "charactersTyped"
)

var messages = map[Trigger][]string{
	TriggerTimeSpent: {
		"Great focus! You've been locked in for {minutes} minutes!",
		"Awesome dedication! {minutes} minutes of solid work!",
		"You're in the zone! {minutes} minutes of productive coding!",
		"Fantastic momentum! Keep that {minutes}-minute streak going!",
		"Impressive focus! {minutes} minutes of deep work achieved!",
	},
	TriggerCharacters: {
		"Nice work! You've typed {characters} characters! Keep the code flowing!",
		"Excellent progress! {characters} characters of pure coding power!",
		"You're on fire! {characters} characters and counting!",
		"Great momentum! {characters} characters of focused development!",
		"Impressive output! {characters} characters of quality code!",
	},
	TriggerSessionStart: {
		"Welcome back! Ready to lock in and code?",
		"Time to code! Let's make some progress today!",
		"New session, new possibilities! Let's build something great!",
		"Ready to enter the flow state? Let's code!",
		"Another day, another chance to improve! Let's go!",
	},
}

// Stats summarizes the current session
type Stats struct {
	CharactersTyped int
	SessionMinutes  int
}

// Tracker accumulates activity and decides when to nudge
type Tracker struct {
	cfg    Config
	notify func(Trigger, string)
	now    func() time.Time
	pick   func(n int) int

	mu                 sync.Mutex
	sessionStart       time.Time
	lastActive         time.Time
	lastNudge          time.Time
	charactersTyped    int
	lastCharacterNudge int
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithPicker replaces the random message choice
func WithPicker(pick func(n int) int) Option {
	return func(t *Tracker) {
		t.pick = pick
	}
}

// NewTracker creates a tracker. notify receives every nudge.
func NewTracker(cfg Config, notify func(Trigger, string), opts ...Option) *Tracker {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.CharThreshold <= 0 {
		cfg.CharThreshold = defaults.CharThreshold
	}
	if cfg.InactiveThreshold <= 0 {
		cfg.InactiveThreshold = defaults.InactiveThreshold
	}

	t := &Tracker{
		cfg:    cfg,
		notify: notify,
		now:    time.Now,
		pick:   rand.IntN,
	}
	for _, opt := range opts {
		opt(t)
	}

	now := t.now()
	t.sessionStart = now
	t.lastActive = now
	t.lastNudge = now
	return t
}

// SessionStart sends the greeting for a new session
func (t *Tracker) SessionStart() {
	t.emit(TriggerSessionStart, t.message(TriggerSessionStart, nil))
}

// RecordActivity adds typed characters. Crossing the character threshold
// sends a nudge.
func (t *Tracker) RecordActivity(chars int) {
	if chars <= 0 {
		return
	}

	t.mu.Lock()
	t.charactersTyped += chars
	t.lastActive = t.now()

	var msg string
	if t.charactersTyped-t.lastCharacterNudge >= t.cfg.CharThreshold {
		t.lastCharacterNudge = t.charactersTyped
		msg = t.message(TriggerCharacters, map[string]int{"characters": t.charactersTyped})
	}
	t.mu.Unlock()

	if msg != "" {
		t.emit(TriggerCharacters, msg)
	}
}

// Check sends a time-based nudge when the user is active and the interval
// since the last one has passed. It reports whether a nudge was sent.
func (t *Tracker) Check() bool {
	t.mu.Lock()
	now := t.now()
	if now.Sub(t.lastActive) >= t.cfg.InactiveThreshold || now.Sub(t.lastNudge) < t.cfg.Interval {
		t.mu.Unlock()
		return false
	}

	t.lastNudge = now
	minutes := int(now.Sub(t.sessionStart) / time.Minute)
	msg := t.message(TriggerTimeSpent, map[string]int{"minutes": minutes})
	t.mu.Unlock()

	t.emit(TriggerTimeSpent, msg)
	return true
}

// Run calls Check every interval until ctx is done
func (t *Tracker) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Check()
		}
	}
}

// Stats returns the counters of the current session
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Stats{
		CharactersTyped: t.charactersTyped,
		SessionMinutes:  int(t.now().Sub(t.sessionStart) / time.Minute),
	}
}

func (t *Tracker) message(trigger Trigger, values map[string]int) string {
	candidates := messages[trigger]
	msg := candidates[t.pick(len(candidates))]
	for key, value := range values {
		msg = strings.ReplaceAll(msg, "{"+key+"}", strconv.Itoa(value))
	}
	return msg
}

func (t *Tracker) emit(trigger Trigger, msg string) {
	log.Debug().Str("trigger", string(trigger)).Msg("Motivation nudge")
	if t.notify != nil {
		t.notify(trigger, msg)
	}
}
