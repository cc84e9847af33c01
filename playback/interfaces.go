// Package playback implements the slide playback orchestration core:
// the sentence sequencer, the audio program player with its slide-scoped
// wrapper, the voice-over player and the slide transition coordinator
// that ties their timers together.
package playback

// EngineEvent identifies a notification from a playback engine adapter.
type EngineEvent int

const (
	// EventSourceLoaded fires once the engine has loaded the current
	// source and is ready to seek and play.
	EventSourceLoaded EngineEvent = iota
	// EventDurationKnown fires when the engine learns the media duration.
	EventDurationKnown
	// EventEndOfMedia fires when the current source reaches its natural end.
	EventEndOfMedia
	// EventInvalidMedia fires when the source cannot be decoded.
	EventInvalidMedia
	// EventNoMedia fires when the engine has no source set.
	EventNoMedia
	// EventError fires on an unrecoverable engine error.
	EventError
	// EventStateChanged fires when the engine's playback state changes.
	EventStateChanged
)

// String returns the event name.
func (e EngineEvent) String() string {
	switch e {
	case EventSourceLoaded:
		return "source_loaded"
	case EventDurationKnown:
		return "duration_known"
	case EventEndOfMedia:
		return "end_of_media"
	case EventInvalidMedia:
		return "invalid_media"
	case EventNoMedia:
		return "no_media"
	case EventError:
		return "error"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// EngineState is the engine-level playback state.
type EngineState int

const (
	// EngineStopped means no playback is in progress.
	EngineStopped EngineState = iota
	// EnginePlaying means the source is audibly playing.
	EnginePlaying
	// EnginePaused means playback is suspended at the current position.
	EnginePaused
)

// String returns the state name.
func (s EngineState) String() string {
	switch s {
	case EngineStopped:
		return "stopped"
	case EnginePlaying:
		return "playing"
	case EnginePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// EngineNotification carries one engine event to the owning player.
// Source is the URI the event refers to, so stale notifications for a
// superseded source can be recognized and discarded.
type EngineNotification struct {
	Event      EngineEvent
	Source     string
	DurationMs int64
	State      EngineState
	Err        error
}

// Engine wraps a single media source: load, play, pause, stop, seek.
// Each player owns exactly one engine instance and subscribes only to
// it; there is no shared event bus.
//
// Notifications must be delivered asynchronously with respect to the
// engine's command methods. An implementation must never invoke the
// notify func from inside SetSource, Play, Stop etc., or the calling
// player can deadlock on its own lock.
type Engine interface {
	// SetSource loads a new media source, replacing any previous one.
	// Readiness is reported via EventSourceLoaded or EventInvalidMedia.
	SetSource(uri string)
	// Play starts or resumes playback of the loaded source.
	Play()
	// Pause suspends playback at the current position.
	Pause()
	// Stop halts playback and resets the position to zero.
	Stop()
	// Seek moves the playback position. Only valid after the source
	// loaded; engines reject pre-load seeks.
	Seek(ms int64)
	// PositionMs reports the current playback position.
	PositionMs() int64
	// IsSeekable reports whether the loaded source supports seeking.
	IsSeekable() bool
	// SetVolume sets the output volume as a linear factor in [0, 1].
	SetVolume(v float64)
	// SetNotifyFunc registers the notification callback. At most one
	// callback is registered per engine.
	SetNotifyFunc(fn func(EngineNotification))
}

// Library provides read-only access to track, program and paragraph
// metadata, and resolves media file paths. All methods are synchronous.
// Missing resources are reported with an error wrapping ErrNotFound.
type Library interface {
	LoadTrackMetadata(name string) (*TrackMetadata, error)
	LoadProgram(name string) (*Program, error)
	LoadParagraph(name string) (*Paragraph, error)
	// MediaPath resolves a library-relative media path to an absolute
	// path, verifying the file exists.
	MediaPath(rel string) (string, error)
}

// DisplaySink renders text and images for the audience-facing window.
type DisplaySink interface {
	DisplayText(text string)
	ClearText()
	DisplayImages(layers []string)
}
