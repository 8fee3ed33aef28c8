package dmerr

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestIs(t *testing.T) {
	err := New(SessionState, "ConvertTabToWindow", "Foo@3", errors.New("no tab open"))
	if !Is(err, SessionState) {
		t.Fatal("Is should match the error's code")
	}
	if Is(err, Persistence) {
		t.Fatal("Is should not match a different code")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if !Is(wrapped, SessionState) {
		t.Fatal("Is should see through wrapping")
	}
	if Is(errors.New("plain"), SessionState) {
		t.Fatal("plain errors carry no code")
	}
}

func TestErrorString(t *testing.T) {
	err := New(Persistence, "Hydrate", "Foo", errors.New("disk gone"))
	want := "PERSISTENCE: Hydrate(Foo): disk gone"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSoft_NilSafe(t *testing.T) {
	Soft(nil, errors.New("x"))
	Soft(slog.Default(), nil)
	Soft(nil, nil)
}
