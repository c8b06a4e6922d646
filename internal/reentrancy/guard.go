// Package reentrancy provides a non-aborting reentrancy guard.
//
// Unlike the usual fail-closed guard, a reentrant attempt does not error:
// TryEnter simply reports false and the caller is expected to return a zero
// result. The caller of the guarded entry point is itself mid-flight inside a
// larger operation that must not be aborted by a nested attempt.
package reentrancy

import "sync/atomic"

const (
	notEntered int32 = iota
	entered
)

// Guard is a single-slot enter/exit bracket for one guarded instance.
// The zero value is ready to use.
type Guard struct {
	state atomic.Int32
}

// New creates a Guard in the not-entered state.
func New() *Guard {
	return &Guard{}
}

// TryEnter attempts to acquire the guard. It returns false if the guard is
// already held, in which case the caller must skip the guarded body and
// must not call Exit.
func (g *Guard) TryEnter() bool {
	return g.state.CompareAndSwap(notEntered, entered)
}

// Exit releases the guard. Calling Exit without a matching successful
// TryEnter indicates a broken bracket and panics.
func (g *Guard) Exit() {
	if !g.state.CompareAndSwap(entered, notEntered) {
		panic("reentrancy: exit without matching enter")
	}
}

// Entered reports whether the guard is currently held.
func (g *Guard) Entered() bool {
	return g.state.Load() == entered
}
