package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		logger := New(level)
		if logger == nil || logger.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default returned nil")
	}
}

func TestWithReturnsChild(t *testing.T) {
	parent := Default()
	child := parent.With("component", "bookings")
	if child == nil || child.Logger == parent.Logger {
		t.Fatal("With should return a distinct child logger")
	}
}
