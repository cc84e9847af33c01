package playback

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// SentenceSequencer walks a bounded range of sentences within a
// paragraph, advancing forward and backward, optionally on a
// per-sentence delay timer. It knows nothing about slides beyond the
// overlay selection it was loaded with; slide navigation stays with the
// Coordinator.
type SentenceSequencer struct {
	mu      sync.Mutex
	library Library
	display DisplaySink
	log     *log.Logger

	paragraph  *Paragraph
	startIdx   int
	endIdx     int
	currentIdx int

	timingEnabled bool
	autoAdvance   bool

	gen   uint64
	timer oneShot

	onAdvanceSlide func()
}

// NewSentenceSequencer creates an inactive sequencer.
func NewSentenceSequencer(library Library, display DisplaySink, logger *log.Logger) *SentenceSequencer {
	return &SentenceSequencer{
		library:    library,
		display:    display,
		log:        logger.With("component", "sequencer"),
		startIdx:   -1,
		endIdx:     -1,
		currentIdx: -1,
	}
}

// OnAdvanceSlide registers the callback fired when the last sentence's
// timer expires and the overlay requested slide auto-advance.
func (s *SentenceSequencer) OnAdvanceSlide(fn func()) {
	s.mu.Lock()
	s.onAdvanceSlide = fn
	s.mu.Unlock()
}

// Load resolves the slide's text overlay against the paragraph library
// and primes the sequencer at the start of the range without displaying
// anything yet. It returns whether text can be shown and the pre-text
// delay (the slide duration, repurposed). Malformed overlay data is
// never fatal: Load returns false and the caller proceeds without text.
//
// Reset must be called first if a prior paragraph is active; Load does
// not reset implicitly.
func (s *SentenceSequencer) Load(slide *Slide) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paragraph != nil {
		s.log.Warn("load called while a paragraph is active; reset first")
		return false, 0
	}

	ov := slide.TextOverlay
	if ov == nil {
		return false, 0
	}
	if ov.ParagraphName == "" || ov.StartSentence < 1 {
		s.log.Warn("incomplete text overlay, no text shown",
			"paragraph", ov.ParagraphName, "start", ov.StartSentence)
		return false, 0
	}

	para, err := s.library.LoadParagraph(ov.ParagraphName)
	if err != nil {
		s.log.Warn("paragraph failed to load, no text shown",
			"paragraph", ov.ParagraphName, "err", err)
		return false, 0
	}

	total := len(para.Sentences)
	start := ov.StartSentence - 1
	end := ov.EndSentence.Resolve(total)
	if start < 0 || start >= total || end < start || end >= total {
		s.log.Warn("invalid sentence range, no text shown",
			"paragraph", ov.ParagraphName, "start", start, "end", end, "sentences", total)
		return false, 0
	}

	s.paragraph = para
	s.startIdx = start
	s.endIdx = end
	s.currentIdx = start
	s.timingEnabled = ov.SentenceTiming
	s.autoAdvance = ov.AutoAdvanceSlide
	s.gen++

	s.log.Info("text loaded",
		"paragraph", ov.ParagraphName, "from", start+1, "to", end+1)
	return true, slide.DurationTimer()
}

// ShowFirst moves to the start of the range and displays that sentence,
// arming its delay timer if sentence timing is enabled.
func (s *SentenceSequencer) ShowFirst() {
	s.mu.Lock()
	if s.paragraph == nil || s.startIdx < 0 {
		s.mu.Unlock()
		s.log.Warn("show first called with no text loaded")
		return
	}
	s.currentIdx = s.startIdx
	s.displayCurrentLocked()
	s.armTimerLocked()
	s.mu.Unlock()
}

// ShowNext advances to the next sentence and displays it, arming a new
// per-sentence timer if timing is enabled, whether the call came from a
// timer or from manual navigation. Returns false at the end of the
// range or when inactive.
func (s *SentenceSequencer) ShowNext(triggeredByTimer bool) bool {
	s.mu.Lock()
	if !s.activeLocked() || s.currentIdx >= s.endIdx {
		s.mu.Unlock()
		return false
	}
	s.currentIdx++
	s.displayCurrentLocked()
	s.armTimerLocked()
	s.mu.Unlock()

	if triggeredByTimer {
		s.log.Debug("advanced by timer", "sentence", s.CurrentIndex()+1)
	}
	return true
}

// ShowPrev moves back one sentence and displays it. Backward navigation
// is always manual-paced: any pending timer is canceled and none is
// re-armed. Returns false at the start of the range or when inactive.
func (s *SentenceSequencer) ShowPrev() bool {
	s.mu.Lock()
	if !s.activeLocked() || s.currentIdx <= s.startIdx {
		s.mu.Unlock()
		return false
	}
	s.currentIdx--
	s.timer.Cancel()
	s.displayCurrentLocked()
	s.mu.Unlock()
	return true
}

// Reset cancels any pending timer, clears the loaded paragraph and
// blanks the display. The sequencer is inactive afterwards.
func (s *SentenceSequencer) Reset() {
	s.mu.Lock()
	s.gen++
	s.timer.Cancel()
	s.paragraph = nil
	s.startIdx = -1
	s.endIdx = -1
	s.currentIdx = -1
	display := s.display
	s.mu.Unlock()

	if display != nil {
		display.ClearText()
	}
}

// IsActive reports whether a paragraph is loaded for playback.
func (s *SentenceSequencer) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// IsAtStart reports whether the current sentence is the first of the
// range.
func (s *SentenceSequencer) IsAtStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked() && s.currentIdx == s.startIdx
}

// IsAtEnd reports whether the current sentence is the last of the
// range.
func (s *SentenceSequencer) IsAtEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked() && s.currentIdx == s.endIdx
}

// CurrentIndex returns the 0-based index of the current sentence within
// its paragraph, or -1 when inactive.
func (s *SentenceSequencer) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIdx
}

func (s *SentenceSequencer) activeLocked() bool {
	return s.paragraph != nil && s.currentIdx != -1
}

func (s *SentenceSequencer) displayCurrentLocked() {
	if !s.activeLocked() || s.currentIdx >= len(s.paragraph.Sentences) {
		return
	}
	text := s.paragraph.Sentences[s.currentIdx].Text
	s.log.Info("displaying sentence", "index", s.currentIdx+1, "text", text)
	if s.display != nil {
		s.display.DisplayText(text)
	}
}

// armTimerLocked starts the current sentence's delay timer if timing is
// enabled and the sentence has a positive delay. A zero delay means the
// sentence waits for manual navigation.
func (s *SentenceSequencer) armTimerLocked() {
	if !s.timingEnabled || !s.activeLocked() {
		return
	}
	delay := s.paragraph.Sentences[s.currentIdx].Delay()
	if delay <= 0 {
		return
	}
	gen := s.gen
	s.timer.Arm(delay, func() { s.handleTimerExpiry(gen) })
}

// handleTimerExpiry runs when a per-sentence timer fires. At the end of
// the range it either requests slide advance (auto_advance_slide) or
// leaves the last sentence displayed; anywhere else it behaves as a
// timer-triggered ShowNext.
func (s *SentenceSequencer) handleTimerExpiry(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.activeLocked() {
		s.mu.Unlock()
		return
	}
	if s.currentIdx >= s.endIdx {
		advance := s.autoAdvance
		cb := s.onAdvanceSlide
		s.mu.Unlock()
		if advance && cb != nil {
			s.log.Debug("last sentence timer fired, requesting slide advance")
			cb()
		}
		return
	}
	s.mu.Unlock()
	s.ShowNext(true)
}
