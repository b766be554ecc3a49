package entities

import (
	"runtime/debug"
	"sync"

	logger "github.com/sirupsen/logrus"
)

// Emitter is a typed publish/subscribe channel. Listeners run synchronously in subscription order,
// and a panicking listener is logged without preventing the remaining listeners from running.
type Emitter[T any] struct {
	mu        sync.RWMutex
	name      string
	nextID    int
	listeners []emitterListener[T]
}

type emitterListener[T any] struct {
	id int
	fn func(T)
}

// NewEmitter creates an emitter; name only shows up in logs.
func NewEmitter[T any](name string) *Emitter[T] {
	return &Emitter[T]{name: name}
}

// Subscribe registers fn and returns the function that removes it.
func (it *Emitter[T]) Subscribe(fn func(T)) func() {
	it.mu.Lock()
	defer it.mu.Unlock()

	it.nextID++
	id := it.nextID
	it.listeners = append(it.listeners, emitterListener[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { it.remove(id) })
	}
}

func (it *Emitter[T]) remove(id int) {
	it.mu.Lock()
	defer it.mu.Unlock()

	for i, l := range it.listeners {
		if l.id == id {
			it.listeners = append(it.listeners[:i:i], it.listeners[i+1:]...)
			return
		}
	}
}

// Fire delivers event to every listener registered at the time of the call.
func (it *Emitter[T]) Fire(event T) {
	it.mu.RLock()
	listeners := make([]emitterListener[T], len(it.listeners))
	copy(listeners, it.listeners)
	it.mu.RUnlock()

	for _, l := range listeners {
		it.deliver(l.fn, event)
	}
}

// Len returns the number of registered listeners.
func (it *Emitter[T]) Len() int {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return len(it.listeners)
}

func (it *Emitter[T]) deliver(fn func(T), event T) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logger.Fields{
				"emitter": it.name,
				"panic":   r,
			}).Errorf("Event listener panicked\n%s", debug.Stack())
		}
	}()
	fn(event)
}
