package urlstate

import "sync"

// Navigator is the external navigation collaborator. The controller hands it
// the full canonical parameter set for every write; the host applies it to
// the address bar (pushState/replaceState, router call, etc.).
//
// Navigate reports success. The controller never panics on a rejected
// navigation; callers decide whether to retry or continue with in-memory
// state.
type Navigator interface {
	Navigate(params map[string]string) bool
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(params map[string]string) bool

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(params map[string]string) bool {
	return f(params)
}

// MemoryNavigator is an in-process Navigator that records every applied
// parameter set. It backs tests and headless hosting, and can be scripted
// to reject navigations.
type MemoryNavigator struct {
	mu sync.Mutex

	// Fail causes Navigate to reject until cleared.
	Fail bool

	history []map[string]string
}

// NewMemoryNavigator creates an empty in-process navigator.
func NewMemoryNavigator() *MemoryNavigator {
	return &MemoryNavigator{}
}

// Navigate implements Navigator.
func (n *MemoryNavigator) Navigate(params map[string]string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Fail {
		return false
	}
	snapshot := make(map[string]string, len(params))
	for k, v := range params {
		snapshot[k] = v
	}
	n.history = append(n.history, snapshot)
	return true
}

// Current returns the most recently applied parameter set, or nil if no
// navigation has happened yet.
func (n *MemoryNavigator) Current() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.history) == 0 {
		return nil
	}
	return n.history[len(n.history)-1]
}

// Count returns the number of applied navigations.
func (n *MemoryNavigator) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.history)
}
