package playback

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Default volumes applied when a slide or caller doesn't specify one.
// Volume is always a linear factor in [0, 1].
const (
	DefaultProgramVolume   = 0.8
	DefaultVoiceOverVolume = 0.9
)

// Sentence is one unit of displayed text with its own post-display delay.
// A zero delay means the sentence never auto-advances.
type Sentence struct {
	Text         string  `json:"text"`
	DelaySeconds float64 `json:"delay_seconds"`
}

// Delay returns the sentence's post-display delay as a duration.
func (s Sentence) Delay() time.Duration {
	if s.DelaySeconds <= 0 {
		return 0
	}
	return time.Duration(s.DelaySeconds * float64(time.Second))
}

// Paragraph is an ordered sequence of sentences. Immutable once loaded
// for playback.
type Paragraph struct {
	Name      string     `json:"name"`
	Sentences []Sentence `json:"sentences"`
}

// EndSentence is the 1-based end of a text overlay range, or "all" for
// the whole paragraph. It marshals as either an integer or the string
// "all".
type EndSentence struct {
	All bool
	Num int
}

// EndAll returns an EndSentence covering the whole paragraph.
func EndAll() EndSentence { return EndSentence{All: true} }

// EndAt returns an EndSentence for the 1-based sentence n.
func EndAt(n int) EndSentence { return EndSentence{Num: n} }

// Resolve returns the 0-based end index for a paragraph with total
// sentences, or -1 if the value cannot resolve to a valid index.
func (e EndSentence) Resolve(total int) int {
	if e.All {
		return total - 1
	}
	if e.Num < 1 {
		return -1
	}
	return e.Num - 1
}

// UnmarshalJSON accepts either an integer or the string "all".
func (e *EndSentence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if strings.EqualFold(s, "all") {
			*e = EndSentence{All: true}
			return nil
		}
		return fmt.Errorf("invalid end_sentence %q", s)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid end_sentence: %w", err)
	}
	*e = EndSentence{Num: n}
	return nil
}

// MarshalJSON emits "all" or the integer form.
func (e EndSentence) MarshalJSON() ([]byte, error) {
	if e.All {
		return json.Marshal("all")
	}
	return json.Marshal(e.Num)
}

// TextOverlay selects a sentence range of a paragraph for display on a
// slide. Sentence numbers are 1-based.
type TextOverlay struct {
	ParagraphName    string      `json:"paragraph_name"`
	StartSentence    int         `json:"start_sentence"`
	EndSentence      EndSentence `json:"end_sentence"`
	SentenceTiming   bool        `json:"sentence_timing_enabled"`
	AutoAdvanceSlide bool        `json:"auto_advance_slide"`
}

// TrackMetadata describes one audio media file. DetectedDurationMs is
// nil when the file's duration could not be probed; playback then
// relies on the engine's end-of-media notification.
type TrackMetadata struct {
	TrackName          string `json:"track_name"`
	FilePath           string `json:"file_path"`
	DetectedDurationMs *int64 `json:"detected_duration_ms"`
}

// ProgramTrackEntry places a track inside a program with optional
// start/end trims in milliseconds. A nil UserEndTimeMs means play to
// the natural end.
type ProgramTrackEntry struct {
	TrackName       string `json:"track_name"`
	PlayOrder       int    `json:"play_order"`
	UserStartTimeMs int64  `json:"user_start_time_ms"`
	UserEndTimeMs   *int64 `json:"user_end_time_ms"`
}

// Program is an ordered, optionally looping playlist of audio tracks.
// LoopIndefinitely takes precedence over LoopCount. LoopCount N means
// N additional repeats after the first full pass.
type Program struct {
	ProgramName      string              `json:"program_name"`
	Tracks           []ProgramTrackEntry `json:"tracks"`
	LoopIndefinitely bool                `json:"loop_indefinitely"`
	LoopCount        int                 `json:"loop_count"`
}

// SlideAudioSettings is the per-slide use of an audio program.
type SlideAudioSettings struct {
	AudioProgramName     string  `json:"audio_program_name,omitempty"`
	LoopAudioProgram     bool    `json:"loop_audio_program,omitempty"`
	AudioIntroDelayMs    int64   `json:"audio_intro_delay_ms,omitempty"`
	AudioOutroDurationMs int64   `json:"audio_outro_duration_ms,omitempty"`
	AudioProgramVolume   float64 `json:"audio_program_volume,omitempty"`
}

// IntroDelay returns the intro delay as a duration.
func (s SlideAudioSettings) IntroDelay() time.Duration {
	return time.Duration(s.AudioIntroDelayMs) * time.Millisecond
}

// OutroDuration returns the outro padding as a duration.
func (s SlideAudioSettings) OutroDuration() time.Duration {
	return time.Duration(s.AudioOutroDurationMs) * time.Millisecond
}

// Slide is one unit of the presentation playlist: image layers plus
// optional text range, optional audio program and timing/loop config.
// Duration is in whole seconds; LoopToSlide is 1-based, 0 for none.
type Slide struct {
	Layers      []string     `json:"layers"`
	Duration    int          `json:"duration"`
	LoopToSlide int          `json:"loop_to_slide"`
	TextOverlay *TextOverlay `json:"text_overlay,omitempty"`
	SlideAudioSettings
}

// UnmarshalJSON fills in the default program volume before decoding so
// that slides authored without an explicit volume don't come out muted.
func (s *Slide) UnmarshalJSON(data []byte) error {
	type slideAlias Slide
	tmp := slideAlias{
		SlideAudioSettings: SlideAudioSettings{AudioProgramVolume: DefaultProgramVolume},
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*s = Slide(tmp)
	return nil
}

// DurationTimer returns the slide duration as a duration value.
func (s *Slide) DurationTimer() time.Duration {
	if s.Duration <= 0 {
		return 0
	}
	return time.Duration(s.Duration) * time.Second
}

// Playlist is the ordered set of slides for one presentation.
type Playlist struct {
	Slides []Slide `json:"slides"`
}
