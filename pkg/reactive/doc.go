// Package reactive provides the observable state primitive used by the
// table engine to publish render state and parameter changes.
//
// State[T] is a value container with snapshot reads and explicit
// subscriptions. Unlike ambient dependency-tracking systems, every
// subscription here is created and torn down explicitly: Subscribe returns
// a cancel function, and components release all their subscriptions on
// teardown.
//
// Consumers that hydrate from a State must read in two phases:
//
//	current := state.Get()        // synchronous snapshot for first render
//	cancel := state.Subscribe(fn) // subsequent changes
//	defer cancel()
//
// Writes are equality-gated: Set with an unchanged value notifies nobody.
package reactive
