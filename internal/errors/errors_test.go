package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not prepared", fmt.Errorf("activate: %w", ErrNotPrepared), "Prepare the deck"},
		{"conflict", ErrActivationConflict, "Wait for the other deck"},
		{"binding", ErrBindingUnavailable, "--simulate"},
		{"rate limit text", errors.New("API error: status 429"), "Too many requests"},
		{"explicit", WithSuggestion(errors.New("boom"), "do the thing"), "do the thing"},
		{"unknown", errors.New("something odd"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetSuggestion(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("GetSuggestion() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("GetSuggestion() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestDeckErrorUnwrap(t *testing.T) {
	err := &DeckError{Deck: "A", Op: "activate", Err: ErrNotPrepared}

	if !Is(err, ErrNotPrepared) {
		t.Error("Is(DeckError, ErrNotPrepared) = false, want true")
	}
	if got, want := err.Error(), "deck A: activate: deck track is not prepared"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Errorf("Format(nil) = %q, want empty", got)
	}

	got := Format(ErrNoTrack)
	if !strings.HasPrefix(got, "Error: deck has no track loaded") {
		t.Errorf("Format() = %q, missing error text", got)
	}
	if !strings.Contains(got, "Suggestion: Load a track") {
		t.Errorf("Format() = %q, missing suggestion", got)
	}
}
