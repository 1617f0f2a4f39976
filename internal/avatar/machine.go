package avatar

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTick is the interval between talking frame flips
	DefaultTick = 300 * time.Millisecond
	MinTick     = 200 * time.Millisecond
	MaxTick     = 500 * time.Millisecond

	// DefaultPetDuration is how long the happy frame stays after a pet
	DefaultPetDuration = 3 * time.Second
)

// ClampTick keeps a configured tick inside the supported range.
// Zero or negative values select DefaultTick.
func ClampTick(tick time.Duration) time.Duration {
	switch {
	case tick <= 0:
		return DefaultTick
	case tick < MinTick:
		return MinTick
	case tick > MaxTick:
		return MaxTick
	default:
		return tick
	}
}

// Machine holds the single active state of one session and drives the
// talking animation. State changes are reported through the OnChange handler
// in the order they happen.
type Machine struct {
	mu       sync.Mutex
	state    State
	onChange func(State)

	// emitMu serializes state assignment with handler delivery
	emitMu sync.Mutex

	// animMu serializes starting and stopping of the talking loop
	animMu sync.Mutex
	anim   *Animation

	petTimer  *time.Timer
	petGen    uint64
	petReturn State
}

// NewMachine creates a machine in the Idle state
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// OnChange registers the state change handler.
// The handler must not call back into Set, Pet or the talking methods.
func (m *Machine) OnChange(handler func(State)) {
	m.mu.Lock()
	m.onChange = handler
	m.mu.Unlock()
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Set moves the machine to s and cancels a pending pet revert
func (m *Machine) Set(s State) {
	m.cancelPet()
	m.transition(s)
}

func (m *Machine) transition(s State) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	m.state = s
	handler := m.onChange
	m.mu.Unlock()

	if handler != nil {
		handler(s)
	}
}

// Pet shows the happy frame for d, then returns to the state that was active
// before the pet unless something else changed the state in the meantime.
// Petting again while happy restarts the timer.
func (m *Machine) Pet(d time.Duration) {
	if d <= 0 {
		d = DefaultPetDuration
	}

	m.mu.Lock()
	if m.petTimer != nil {
		m.petTimer.Stop()
	} else {
		m.petReturn = m.state
	}
	m.petGen++
	gen := m.petGen
	m.petTimer = time.AfterFunc(d, func() { m.revertPet(gen) })
	m.mu.Unlock()

	m.transition(Happy)
}

func (m *Machine) revertPet(gen uint64) {
	m.mu.Lock()
	if gen != m.petGen || m.state != Happy {
		m.mu.Unlock()
		return
	}
	m.petTimer = nil
	previous := m.petReturn
	m.mu.Unlock()

	if previous == Happy || previous == "" {
		previous = Idle
	}
	log.Debug().Str("state", previous.String()).Msg("Pet finished, reverting state")
	m.transition(previous)
}

func (m *Machine) cancelPet() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.petTimer != nil {
		m.petTimer.Stop()
		m.petTimer = nil
	}
	m.petGen++
}

// StartTalking stops any running talking loop, switches to Talking and
// alternates Idle and Talking every tick until the returned Animation is
// stopped.
func (m *Machine) StartTalking(tick time.Duration) *Animation {
	if tick <= 0 {
		tick = DefaultTick
	}

	m.animMu.Lock()
	defer m.animMu.Unlock()

	if m.anim != nil {
		m.anim.Stop()
		m.anim = nil
	}

	m.cancelPet()
	m.transition(Talking)

	a := newAnimation()
	m.anim = a
	go m.animate(a, tick)

	log.Debug().Dur("tick", tick).Msg("Talking animation started")
	return a
}

// StopTalking stops the running talking loop, if any, and waits for it to exit
func (m *Machine) StopTalking() {
	m.animMu.Lock()
	defer m.animMu.Unlock()

	if m.anim != nil {
		m.anim.Stop()
		m.anim = nil
	}
}

// Reset stops the talking loop and any pet timer and returns to Idle
func (m *Machine) Reset() {
	m.StopTalking()
	m.Set(Idle)
}

func (m *Machine) animate(a *Animation, tick time.Duration) {
	defer close(a.done)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	mouthOpen := true
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			// a stop that raced with the tick wins
			select {
			case <-a.stop:
				return
			default:
			}

			next := Talking
			if mouthOpen {
				next = Idle
			}
			mouthOpen = !mouthOpen
			a.flips.Add(1)
			m.transition(next)
		}
	}
}
