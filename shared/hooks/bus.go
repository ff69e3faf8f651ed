package hooks

import "sync"

// Bus keys one Chain per event name.
type Bus[T any] struct {
	mu     sync.Mutex
	chains map[string]*Chain[T]
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{chains: make(map[string]*Chain[T])}
}

func (b *Bus[T]) chain(event string) *Chain[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.chains[event]
	if !ok {
		c = NewChain[T]()
		b.chains[event] = c
	}
	return c
}

func (b *Bus[T]) On(event, name string, priority int, fn Handler[T]) {
	b.chain(event).Register(name, priority, fn)
}

// Trigger runs the handlers of event; events nobody listens to are a no-op.
func (b *Bus[T]) Trigger(event string, value *T) error {
	return b.chain(event).Run(value)
}
