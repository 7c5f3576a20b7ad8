package activity

import "sync"

// Source delivers activity signals to subscribers.
type Source interface {
	// Subscribe registers fn for kind and returns a function that removes it.
	Subscribe(kind Kind, fn func()) (cancel func())
}

// Bus is an in-process Source. Handlers run synchronously in the
// publisher's goroutine.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[Kind]map[uint64]func()
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind]map[uint64]func())}
}

// Subscribe implements Source.
func (b *Bus) Subscribe(kind Kind, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[uint64]func())
	}
	b.handlers[kind][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[kind], id)
			if len(b.handlers[kind]) == 0 {
				delete(b.handlers, kind)
			}
		})
	}
}

// Publish delivers a signal of the given kind. It reports how many
// handlers received it.
func (b *Bus) Publish(kind Kind) int {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.handlers[kind]))
	for _, fn := range b.handlers[kind] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}

	return len(fns)
}

// Listeners returns the number of registered handlers across all kinds.
func (b *Bus) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, hs := range b.handlers {
		n += len(hs)
	}
	return n
}

var _ Source = (*Bus)(nil)
