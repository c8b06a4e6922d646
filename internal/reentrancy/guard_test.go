package reentrancy

import "testing"

func TestGuard_Bracket(t *testing.T) {
	g := New()

	if g.Entered() {
		t.Fatal("new guard should not be entered")
	}
	if !g.TryEnter() {
		t.Fatal("first TryEnter should succeed")
	}
	if !g.Entered() {
		t.Fatal("guard should be entered after TryEnter")
	}
	g.Exit()
	if g.Entered() {
		t.Fatal("guard should not be entered after Exit")
	}
}

func TestGuard_ReentrantAttemptIsRefused(t *testing.T) {
	g := New()

	if !g.TryEnter() {
		t.Fatal("first TryEnter should succeed")
	}
	// Nested attempt while held: refused, outer bracket unaffected.
	if g.TryEnter() {
		t.Fatal("nested TryEnter should be refused")
	}
	if !g.Entered() {
		t.Fatal("guard must remain held after refused attempt")
	}
	g.Exit()

	// Fresh top-level call succeeds again.
	if !g.TryEnter() {
		t.Fatal("TryEnter should succeed after Exit")
	}
	g.Exit()
}

func TestGuard_ExitWithoutEnterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Exit without Enter should panic")
		}
	}()
	New().Exit()
}
