package motivation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type nudge struct {
	trigger Trigger
	message string
}

type recorder struct {
	mu     sync.Mutex
	nudges []nudge
}

func (r *recorder) notify(trigger Trigger, msg string) {
	r.mu.Lock()
	r.nudges = append(r.nudges, nudge{trigger, msg})
	r.mu.Unlock()
}

func (r *recorder) all() []nudge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]nudge(nil), r.nudges...)
}

func newTestTracker(cfg Config) (*Tracker, *fakeClock, *recorder) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	first := func(int) int { return 0 }
	return NewTracker(cfg, rec.notify, WithClock(clock.Now), WithPicker(first)), clock, rec
}

func TestTracker_SessionStart(t *testing.T) {
	tracker, _, rec := newTestTracker(DefaultConfig())
	tracker.SessionStart()

	nudges := rec.all()
	require.Len(t, nudges, 1)
	assert.Equal(t, TriggerSessionStart, nudges[0].trigger)
	assert.Equal(t, "Welcome back! Ready to lock in and code?", nudges[0].message)
}

func TestTracker_CharacterThreshold(t *testing.T) {
	tracker, _, rec := newTestTracker(DefaultConfig())

	tracker.RecordActivity(300)
	assert.Empty(t, rec.all())

	tracker.RecordActivity(250)
	nudges := rec.all()
	require.Len(t, nudges, 1)
	assert.Equal(t, TriggerCharacters, nudges[0].trigger)
	assert.Equal(t, "Nice work! You've typed 550 characters! Keep the code flowing!", nudges[0].message)

	// the next nudge needs another full threshold
	tracker.RecordActivity(400)
	assert.Len(t, rec.all(), 1)
	tracker.RecordActivity(100)
	assert.Len(t, rec.all(), 2)

	tracker.RecordActivity(0)
	tracker.RecordActivity(-5)
	assert.Equal(t, 1050, tracker.Stats().CharactersTyped)
}

func TestTracker_TimeBasedNudge(t *testing.T) {
	tracker, clock, rec := newTestTracker(DefaultConfig())

	clock.Advance(14 * time.Minute)
	tracker.RecordActivity(1)
	assert.False(t, tracker.Check(), "interval not reached")

	clock.Advance(time.Minute)
	require.True(t, tracker.Check())

	nudges := rec.all()
	require.Len(t, nudges, 1)
	assert.Equal(t, TriggerTimeSpent, nudges[0].trigger)
	assert.Equal(t, "Great focus! You've been locked in for 15 minutes!", nudges[0].message)

	assert.False(t, tracker.Check(), "interval restarts after a nudge")
}

func TestTracker_InactiveUserIsNotNudged(t *testing.T) {
	tracker, clock, rec := newTestTracker(DefaultConfig())

	clock.Advance(20 * time.Minute)
	assert.False(t, tracker.Check())

	tracker.RecordActivity(10)
	clock.Advance(time.Minute)
	assert.True(t, tracker.Check())
	assert.Len(t, rec.all(), 1)
}

func TestTracker_Stats(t *testing.T) {
	tracker, clock, _ := newTestTracker(DefaultConfig())
	clock.Advance(90 * time.Second)
	tracker.RecordActivity(42)

	assert.Equal(t, Stats{CharactersTyped: 42, SessionMinutes: 1}, tracker.Stats())
}

func TestNewTracker_Defaults(t *testing.T) {
	tracker := NewTracker(Config{}, nil)
	assert.Equal(t, DefaultConfig(), tracker.cfg)

	// nil notify must not panic
	tracker.SessionStart()
}

func TestTracker_Run(t *testing.T) {
	cfg := Config{Interval: time.Millisecond, CharThreshold: 500, InactiveThreshold: time.Hour}
	rec := &recorder{}
	tracker := NewTracker(cfg, rec.notify)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(rec.all()) > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
