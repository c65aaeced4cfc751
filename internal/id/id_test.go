package id

import (
	"testing"
	"time"
)

// TestNewRunIDIsTimeOrdered ensures IDs are unique v7 UUIDs that sort by creation.
func TestNewRunIDIsTimeOrdered(t *testing.T) {
	t.Parallel()

	first, err := NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	if first == second {
		t.Fatalf("expected unique IDs, got %s twice", first)
	}
	if first.Version() != 7 || second.Version() != 7 {
		t.Fatalf("expected v7 UUIDs, got %d and %d", first.Version(), second.Version())
	}
	if first.String() >= second.String() {
		t.Fatalf("expected %s to sort before %s", first, second)
	}
}
