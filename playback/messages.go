package playback

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Messages the playback core sends into the UI program. Components
// never call UI code directly; they hand these to a tea.Program's Send.

// SlideChangedMsg reports that a new slide became active.
type SlideChangedMsg struct {
	Index int
	Total int
}

// SlideFinishedMsg reports that the active slide reached its terminal
// state without looping away.
type SlideFinishedMsg struct {
	Index int
}

// TrackChangedMsg reports that the program player started a new track.
type TrackChangedMsg struct {
	TrackName string
}

// VoiceOverFinishedMsg reports that a voice-over ended, naturally or
// not.
type VoiceOverFinishedMsg struct {
	TrackName string
}

// PlaybackErrorMsg carries a non-fatal playback error for display.
type PlaybackErrorMsg struct {
	Err error
}

// Commands the UI issues against the coordinator. Each wraps one
// coordinator call as a tea.Cmd so key handlers stay declarative.

// NextSlideCmd advances text or slide, whichever the coordinator picks.
func NextSlideCmd(c *Coordinator) tea.Cmd {
	return func() tea.Msg {
		c.Next()
		return nil
	}
}

// PrevSlideCmd steps backwards.
func PrevSlideCmd(c *Coordinator) tea.Cmd {
	return func() tea.Msg {
		c.Prev()
		return nil
	}
}

// ShowSlideCmd jumps to the 0-based slide index.
func ShowSlideCmd(c *Coordinator, index int) tea.Cmd {
	return func() tea.Msg {
		c.ShowSlide(index)
		return nil
	}
}

// ClearCmd tears down the active slide.
func ClearCmd(c *Coordinator) tea.Cmd {
	return func() tea.Msg {
		c.Clear()
		return nil
	}
}

// PlayVoiceOverCmd starts a one-shot voice-over cue. A negative volume
// selects the default.
func PlayVoiceOverCmd(v *VoiceOverPlayer, track string, volume float64, startMs int64) tea.Cmd {
	return func() tea.Msg {
		if err := v.Play(track, volume, startMs); err != nil {
			return PlaybackErrorMsg{Err: err}
		}
		return nil
	}
}
