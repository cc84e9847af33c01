package playback

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Coordinator is the top-level slide transition state machine. Per
// slide it starts and stops the sentence sequencer, the slide audio
// player and a plain countdown timer, and decides on any of them
// finishing whether to advance, loop to a target slide or halt. It is
// the only component aware of slide-to-slide navigation.
type Coordinator struct {
	mu         sync.Mutex
	sequencer  *SentenceSequencer
	slideAudio *SlideAudioPlayer
	display    DisplaySink
	log        *log.Logger

	slides  []Slide
	current int

	gen        uint64
	slideTimer oneShot

	onSlideChanged  func(index int)
	onSlideFinished func(index int)
}

// NewCoordinator wires the coordinator to its per-slide players. It
// takes over the sequencer's advance-slide callback.
func NewCoordinator(sequencer *SentenceSequencer, slideAudio *SlideAudioPlayer, display DisplaySink, logger *log.Logger) *Coordinator {
	c := &Coordinator{
		sequencer:  sequencer,
		slideAudio: slideAudio,
		display:    display,
		log:        logger.With("component", "coordinator"),
		current:    -1,
	}
	sequencer.OnAdvanceSlide(c.handleSlideFinished)
	return c
}

// OnSlideChanged registers the callback fired after a slide activates.
func (c *Coordinator) OnSlideChanged(fn func(index int)) {
	c.mu.Lock()
	c.onSlideChanged = fn
	c.mu.Unlock()
}

// OnSlideFinished registers the callback fired when a slide reaches its
// terminal state without looping away.
func (c *Coordinator) OnSlideFinished(fn func(index int)) {
	c.mu.Lock()
	c.onSlideFinished = fn
	c.mu.Unlock()
}

// SetPlaylist replaces the slide list and clears any active slide.
func (c *Coordinator) SetPlaylist(slides []Slide) {
	c.Clear()
	c.mu.Lock()
	c.slides = slides
	c.mu.Unlock()
	c.log.Info("playlist set", "slides", len(slides))
}

// ShowSlide activates the slide at the given 0-based index: the
// previous slide's sequencer, audio and timers are torn down
// unconditionally, then the new slide's images, text and audio start.
// Text and audio run independently; neither waits for the other.
func (c *Coordinator) ShowSlide(index int) bool {
	c.mu.Lock()
	if index < 0 || index >= len(c.slides) {
		c.mu.Unlock()
		c.log.Warn("slide index out of range", "index", index, "slides", len(c.slides))
		return false
	}
	c.gen++
	c.slideTimer.Cancel()
	c.current = index
	slide := c.slides[index]
	changedCb := c.onSlideChanged
	c.mu.Unlock()

	c.sequencer.Reset()
	c.slideAudio.Stop()

	c.log.Info("showing slide", "index", index+1, "layers", len(slide.Layers))
	if c.display != nil {
		c.display.DisplayImages(slide.Layers)
	}

	textLoaded, _ := c.sequencer.Load(&slide)
	c.slideAudio.LoadAndPlay(slide.SlideAudioSettings)

	delay := slide.DurationTimer()
	c.mu.Lock()
	gen := c.gen
	if delay > 0 {
		// With text the slide duration is repurposed as the pre-text
		// delay; without text it is a plain auto-advance timer.
		c.slideTimer.Arm(delay, func() { c.handleSlideTimer(gen, textLoaded) })
	} else if textLoaded {
		c.mu.Unlock()
		c.sequencer.ShowFirst()
		c.mu.Lock()
	}
	// No text and no duration: the slide waits for manual navigation.
	c.mu.Unlock()

	if changedCb != nil {
		changedCb(index)
	}
	return true
}

// handleSlideTimer runs when the slide's duration timer expires: start
// the text if there is any, otherwise the slide is finished.
func (c *Coordinator) handleSlideTimer(gen uint64, textLoaded bool) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if textLoaded {
		c.sequencer.ShowFirst()
		return
	}
	c.handleSlideFinished()
}

// handleSlideFinished reacts to a slide-finished event, from either the
// plain duration timer or the sequencer's auto-advance request. Audio
// completion never finishes a slide; audio is ambient.
func (c *Coordinator) handleSlideFinished() {
	c.mu.Lock()
	if c.current < 0 || c.current >= len(c.slides) {
		c.mu.Unlock()
		return
	}
	slide := c.slides[c.current]
	index := c.current
	finishedCb := c.onSlideFinished
	c.mu.Unlock()

	if slide.LoopToSlide > 0 {
		target := slide.LoopToSlide - 1
		c.log.Info("slide finished, looping", "from", index+1, "to", slide.LoopToSlide)
		c.ShowSlide(target)
		return
	}
	// Terminal state: stay put, await manual navigation.
	c.log.Info("slide finished", "index", index+1)
	if finishedCb != nil {
		finishedCb(index)
	}
}

// Next advances one step. Text navigation takes precedence: with an
// active sequencer not at its end, the next sentence shows instead of
// the next slide. Returns false when there is nowhere to go.
func (c *Coordinator) Next() bool {
	if c.sequencer.IsActive() && !c.sequencer.IsAtEnd() {
		return c.sequencer.ShowNext(false)
	}
	c.mu.Lock()
	index := c.current
	total := len(c.slides)
	c.mu.Unlock()
	if index+1 >= total {
		return false
	}
	return c.ShowSlide(index + 1)
}

// Prev steps one back, with the same text-before-slide precedence as
// Next.
func (c *Coordinator) Prev() bool {
	if c.sequencer.IsActive() && !c.sequencer.IsAtStart() {
		return c.sequencer.ShowPrev()
	}
	c.mu.Lock()
	index := c.current
	c.mu.Unlock()
	if index <= 0 {
		return false
	}
	return c.ShowSlide(index - 1)
}

// PauseAudio suspends the active slide's program audio.
func (c *Coordinator) PauseAudio() {
	c.slideAudio.Pause()
}

// ResumeAudio continues paused program audio.
func (c *Coordinator) ResumeAudio() {
	c.slideAudio.Resume()
}

// CurrentSlide returns the active 0-based slide index, or -1.
func (c *Coordinator) CurrentSlide() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SlideCount returns the number of slides in the playlist.
func (c *Coordinator) SlideCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slides)
}

// Clear tears down the active slide entirely: timers, text, audio and
// display.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	c.gen++
	c.slideTimer.Cancel()
	c.current = -1
	c.mu.Unlock()

	c.sequencer.Reset()
	c.slideAudio.Stop()
	if c.display != nil {
		c.display.DisplayImages(nil)
	}
}
