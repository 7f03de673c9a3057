package store

import (
	"sync"
	"time"
)

// TimerManager owns at most one countdown per active question. A
// countdown that fires invokes its callback exactly once and then
// forgets itself; Cancel is safe to call at any point, including after
// the countdown has already fired.
type TimerManager struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimerManager() *TimerManager {
	return &TimerManager{
		timers: make(map[string]*time.Timer),
	}
}

// Arm starts a countdown for the given question. An existing countdown
// for the same question is replaced.
func (tm *TimerManager) Arm(questionID string, d time.Duration, onExpire func()) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if old, ok := tm.timers[questionID]; ok {
		old.Stop()
	}
	tm.timers[questionID] = time.AfterFunc(d, func() {
		// Forget before invoking so onExpire can call Cancel without
		// touching a timer that is mid-fire.
		tm.mu.Lock()
		delete(tm.timers, questionID)
		tm.mu.Unlock()

		onExpire()
	})
}

// Cancel stops the countdown for the given question if one is armed.
// No-op for unknown questions and for countdowns that already fired.
func (tm *TimerManager) Cancel(questionID string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if t, ok := tm.timers[questionID]; ok {
		t.Stop()
		delete(tm.timers, questionID)
	}
}

// Armed reports whether a countdown is currently armed for the question.
func (tm *TimerManager) Armed(questionID string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	_, ok := tm.timers[questionID]
	return ok
}

// ArmedCount returns the number of currently armed countdowns.
func (tm *TimerManager) ArmedCount() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	return len(tm.timers)
}
