// Package typewriter paces the display of a growing reply so that text
// appears a few characters at a time instead of in large jumps.
package typewriter

import (
	"sync"
	"time"
)

const (
	// TickInterval is the cadence at which callers should advance the
	// animation while it is behind.
	TickInterval = 15 * time.Millisecond

	// CharsPerTick is how many characters each tick reveals.
	CharsPerTick = 3
)

// Typewriter reveals a target string incrementally. The revealed length
// only ever moves forward; a shrinking target is ignored so the visible
// text never flickers backwards.
type Typewriter struct {
	mu        sync.Mutex
	target    []rune
	displayed int
}

// New returns a Typewriter with nothing to show.
func New() *Typewriter {
	return &Typewriter{}
}

// SetTarget installs the full accumulated text. Targets shorter than
// the current one are dropped; the revealed prefix is monotonic.
func (tw *Typewriter) SetTarget(text string) {
	runes := []rune(text)
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if len(runes) < len(tw.target) {
		return
	}
	tw.target = runes
}

// Tick advances the reveal by CharsPerTick, clamped to the target
// length. It reports whether the animation is still behind, i.e.
// whether another tick should be scheduled.
func (tw *Typewriter) Tick() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.displayed += CharsPerTick
	if tw.displayed > len(tw.target) {
		tw.displayed = len(tw.target)
	}
	return tw.displayed < len(tw.target)
}

// Visible returns the currently revealed prefix.
func (tw *Typewriter) Visible() string {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return string(tw.target[:tw.displayed])
}

// CaughtUp reports whether everything set so far is revealed.
func (tw *Typewriter) CaughtUp() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.displayed >= len(tw.target)
}

// Skip reveals the whole target immediately.
func (tw *Typewriter) Skip() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.displayed = len(tw.target)
}

// Reset discards all state for the next exchange.
func (tw *Typewriter) Reset() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.target = nil
	tw.displayed = 0
}
