package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Mixer protocol errors.
var (
	ErrNoTrack              = errors.New("deck has no track loaded")
	ErrNotPrepared          = errors.New("deck track is not prepared")
	ErrDeckActive           = errors.New("deck is active")
	ErrBindingUnavailable   = errors.New("remote player not connected")
	ErrActivationConflict   = errors.New("activation already in flight")
	ErrTransitionInProgress = errors.New("crossfade already in progress")
)

// Transport and environment errors.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoActiveDevice   = errors.New("no active device")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrTrackNotFound    = errors.New("track not found")
	ErrPremiumRequired  = errors.New("spotify premium required")
	ErrRateLimited      = errors.New("rate limited")
	ErrNetworkError     = errors.New("network error")
	ErrTimeout          = errors.New("request timeout")
	ErrConfigNotFound   = errors.New("config file not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// DeckError ties an error to the deck it happened on.
type DeckError struct {
	Deck string
	Op   string
	Err  error
}

func (e *DeckError) Error() string {
	return fmt.Sprintf("deck %s: %s: %v", e.Deck, e.Op, e.Err)
}

func (e *DeckError) Unwrap() error {
	return e.Err
}

// RiffError wraps an error with a user-friendly suggestion.
type RiffError struct {
	Err        error
	Suggestion string
}

func (e *RiffError) Error() string {
	return e.Err.Error()
}

func (e *RiffError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &RiffError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var riffErr *RiffError
	if errors.As(err, &riffErr) && riffErr.Suggestion != "" {
		return riffErr.Suggestion
	}

	switch {
	case errors.Is(err, ErrNotPrepared):
		return "Prepare the deck with a cue point before starting it"
	case errors.Is(err, ErrNoTrack):
		return "Load a track onto the deck first"
	case errors.Is(err, ErrDeckActive):
		return "Switch playback to the other deck before loading a new track here"
	case errors.Is(err, ErrActivationConflict):
		return "Wait for the other deck to finish loading"
	case errors.Is(err, ErrBindingUnavailable):
		return "Open Spotify on a device, or run with --simulate"
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, ErrNotAuthenticated) || strings.Contains(errStr, "not authenticated") ||
		strings.Contains(errStr, "invalid access token") || strings.Contains(errStr, "token expired") {
		return "Store a Spotify token at spotify.token_file (see 'riffdeck config show')"
	}

	if errors.Is(err, ErrNoActiveDevice) || strings.Contains(errStr, "no active device") {
		return "Open Spotify on a device, or set spotify.device in the config"
	}

	if errors.Is(err, ErrDeviceNotFound) || strings.Contains(errStr, "device not found") {
		return "Run 'riffdeck devices' to see available devices"
	}

	if errors.Is(err, ErrPremiumRequired) || strings.Contains(errStr, "premium required") ||
		strings.Contains(errStr, "restricted device") {
		return "Full-track playback requires Spotify Premium"
	}

	if errors.Is(err, ErrRateLimited) || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") {
		return "Too many requests. Raise mixer.reconcile_interval_ms and try again"
	}

	if errors.Is(err, ErrNetworkError) || errors.Is(err, ErrTimeout) ||
		strings.Contains(errStr, "network") || strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") {
		return "Check your internet connection and try again"
	}

	if errors.Is(err, ErrConfigNotFound) || strings.Contains(errStr, "config") {
		return "Run 'riffdeck config init' to create a configuration file"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}
