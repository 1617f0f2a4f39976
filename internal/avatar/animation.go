package avatar

import (
	"sync"
	"sync/atomic"
)

// Animation is a handle to one running talking loop
type Animation struct {
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
	flips atomic.Int64
}

func newAnimation() *Animation {
	return &Animation{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Stop cancels the loop and blocks until it has exited. After Stop returns the
// loop emits no further state changes. Safe to call more than once.
func (a *Animation) Stop() {
	a.once.Do(func() { close(a.stop) })
	<-a.done
}

// Done is closed once the loop has exited
func (a *Animation) Done() <-chan struct{} {
	return a.done
}

// Flips returns how many Idle/Talking alternations the loop has emitted
func (a *Animation) Flips() int {
	return int(a.flips.Load())
}
