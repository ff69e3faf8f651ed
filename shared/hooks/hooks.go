// Package hooks provides ordered handler chains: every registered handler gets
// a pointer to the same value and may inspect or replace any part of it.
// Handlers run by ascending priority, then in registration order.
package hooks

import (
	"fmt"
	"sort"
	"sync"
)

const DefaultPriority = 500

type Handler[T any] func(value *T) error

type entry[T any] struct {
	priority int
	seq      int
	name     string
	fn       Handler[T]
}

type Chain[T any] struct {
	mu       sync.RWMutex
	handlers []entry[T]
	seq      int
}

func NewChain[T any]() *Chain[T] {
	return &Chain[T]{}
}

// Register adds fn under name; name only shows up in errors.
func (c *Chain[T]) Register(name string, priority int, fn Handler[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.handlers = append(c.handlers, entry[T]{priority: priority, seq: c.seq, name: name, fn: fn})
	sort.SliceStable(c.handlers, func(i, j int) bool {
		if c.handlers[i].priority != c.handlers[j].priority {
			return c.handlers[i].priority < c.handlers[j].priority
		}
		return c.handlers[i].seq < c.handlers[j].seq
	})
}

func (c *Chain[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

// Run passes value through every handler. The first error stops the chain.
func (c *Chain[T]) Run(value *T) error {
	c.mu.RLock()
	handlers := make([]entry[T], len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.RUnlock()

	for _, h := range handlers {
		if err := h.fn(value); err != nil {
			return fmt.Errorf("hook %q: %w", h.name, err)
		}
	}
	return nil
}
