package playback

import "errors"

// Errors reported by the playback core. Configuration problems are
// never fatal to a slide: callers log them and carry on with the
// feature absent.
var (
	// Library errors.
	ErrNotFound = errors.New("resource not found")

	// Program player errors.
	ErrNoPlayableTracks = errors.New("program has no playable tracks")
	ErrNoProgramLoaded  = errors.New("no program loaded")

	// Shared player errors.
	ErrInvalidVolume = errors.New("volume must be between 0.0 and 1.0")
	ErrNoTrackName   = errors.New("no track name provided")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)
