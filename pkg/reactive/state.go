package reactive

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// idCounter generates unique subscription IDs.
var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

// subscriber pairs a callback with its unique ID so Unsubscribe can
// remove exactly one registration.
type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// State is an observable value container with explicit subscriptions.
// Reads return a snapshot; writes notify subscribers only when the value
// actually changed according to the configured equality function.
//
// Every subscription returns a cancel function that deterministically tears
// the subscription down. A cancelled subscription is never called again.
type State[T any] struct {
	mu    sync.RWMutex
	value T

	subMu sync.RWMutex
	subs  []subscriber[T]

	// equal determines whether a write changed the value.
	// If nil, uses default equality checking.
	equal func(T, T) bool
}

// NewState creates a new observable state with the given initial value.
func NewState[T any](initial T) *State[T] {
	return &State[T]{value: initial}
}

// Get returns the current value snapshot.
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the value and notifies subscribers if it changed.
func (s *State[T]) Set(value T) {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if changed {
		s.notify(value)
	}
}

// Update atomically reads and updates the value.
// The function receives the current value and returns the new value.
func (s *State[T]) Update(fn func(T) T) {
	s.mu.Lock()
	newValue := fn(s.value)
	changed := !s.equals(s.value, newValue)
	if changed {
		s.value = newValue
	}
	s.mu.Unlock()

	if changed {
		s.notify(newValue)
	}
}

// Subscribe registers fn to be called on every change of the value.
// It does not fire for the current value; callers that need the current
// value first should Get() before subscribing (snapshot-then-subscribe).
//
// The returned cancel function removes the subscription; calling it more
// than once is a no-op.
func (s *State[T]) Subscribe(fn func(T)) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	sub := subscriber[T]{id: nextID(), fn: fn}

	s.subMu.Lock()
	s.subs = append(s.subs, sub)
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.unsubscribe(sub.id)
		})
	}
}

// WithEquals configures the state with a custom equality function.
// Useful for types where reflect.DeepEqual is too expensive or has the
// wrong semantics.
func (s *State[T]) WithEquals(fn func(T, T) bool) *State[T] {
	s.equal = fn
	return s
}

// notify calls every subscriber with the new value.
// Uses copy-before-notify so callbacks can subscribe or cancel without
// deadlocking against the subscriber lock.
func (s *State[T]) notify(value T) {
	s.subMu.RLock()
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	for _, sub := range subs {
		sub.fn(value)
	}
}

// unsubscribe removes the subscriber with the given ID.
func (s *State[T]) unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for i, sub := range s.subs {
		if sub.id == id {
			// Remove by swapping with last element (order doesn't matter)
			s.subs[i] = s.subs[len(s.subs)-1]
			s.subs = s.subs[:len(s.subs)-1]
			return
		}
	}
}

// equals checks two values with the configured equality function.
func (s *State[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals provides type-appropriate equality checking.
// Uses == for common comparable types and reflect.DeepEqual for others.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int64:
		return av == any(b).(int64)
	case uint64:
		return av == any(b).(uint64)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		// Fall back to reflect.DeepEqual for slices, maps, structs, etc.
		return reflect.DeepEqual(a, b)
	}
}
