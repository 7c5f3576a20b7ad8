// Package activity relays user interaction signals to the inactivity monitor.
package activity

import "sync"

// Tracker registers one shared handler per interaction Kind on a Source.
// Every signal calls touch; payloads are never inspected and nothing is
// debounced.
type Tracker struct {
	source Source

	mu      sync.Mutex
	cancels []func()
}

// NewTracker creates a Tracker over source.
func NewTracker(source Source) *Tracker {
	return &Tracker{source: source}
}

// Start subscribes touch to every Kind. Calling Start on a running
// tracker does nothing.
func (t *Tracker) Start(touch func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancels != nil {
		return
	}

	handler := func() { touch() }
	t.cancels = make([]func(), 0, len(kinds))
	for _, k := range kinds {
		t.cancels = append(t.cancels, t.source.Subscribe(k, handler))
	}
}

// Stop removes every handler registered by Start.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancels := t.cancels
	t.cancels = nil
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Active reports whether the tracker currently holds subscriptions.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancels != nil
}
