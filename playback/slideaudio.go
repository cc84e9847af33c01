package playback

import (
	"sync"

	"github.com/charmbracelet/log"
)

// slideAudioPhase tracks where a slide's audio cycle currently is.
type slideAudioPhase int

const (
	phaseStopped slideAudioPhase = iota
	phaseIntroWait
	phaseRunning
	phaseOutroWait
)

func (p slideAudioPhase) String() string {
	switch p {
	case phaseStopped:
		return "stopped"
	case phaseIntroWait:
		return "intro-wait"
	case phaseRunning:
		return "running"
	case phaseOutroWait:
		return "outro-wait"
	default:
		return "unknown"
	}
}

// SlideAudioPlayer runs a slide's audio program with the slide's intro
// delay before the first note and outro padding after the last. With
// loop_audio_program set, the whole intro-program-outro cycle repeats
// until the slide changes.
type SlideAudioPlayer struct {
	mu      sync.Mutex
	program *ProgramPlayer
	log     *log.Logger

	phase    slideAudioPhase
	settings SlideAudioSettings
	neutral  float64
	gen      uint64
	timer    oneShot
}

// NewSlideAudioPlayer wraps a program player with per-slide timing. It
// takes over the program player's finished callback.
func NewSlideAudioPlayer(program *ProgramPlayer, logger *log.Logger) *SlideAudioPlayer {
	p := &SlideAudioPlayer{
		program: program,
		log:     logger.With("component", "slide-audio"),
		neutral: DefaultProgramVolume,
	}
	program.OnFinished(p.handleProgramFinished)
	return p
}

// SetNeutralVolume overrides the volume restored after a slide's audio
// stops. Out-of-range values are ignored.
func (p *SlideAudioPlayer) SetNeutralVolume(v float64) {
	if v < 0 || v > 1 {
		return
	}
	p.mu.Lock()
	p.neutral = v
	p.mu.Unlock()
}

// LoadAndPlay tears down any previous slide's audio, then starts the
// new slide's cycle. A slide without an audio program simply leaves
// audio stopped. A program that fails to load is logged and skipped;
// the slide shows without audio.
func (p *SlideAudioPlayer) LoadAndPlay(settings SlideAudioSettings) {
	p.Stop()

	if settings.AudioProgramName == "" {
		return
	}

	if err := p.program.LoadProgram(settings.AudioProgramName); err != nil {
		p.log.Warn("audio program unavailable, slide plays silent",
			"program", settings.AudioProgramName, "err", err)
		return
	}
	if err := p.program.SetVolume(settings.AudioProgramVolume); err != nil {
		p.log.Warn("invalid program volume, using default",
			"volume", settings.AudioProgramVolume)
		p.mu.Lock()
		neutral := p.neutral
		p.mu.Unlock()
		p.program.SetVolume(neutral)
	}

	p.mu.Lock()
	p.settings = settings
	playNow := p.startCycleLocked()
	p.mu.Unlock()
	if playNow {
		p.playProgram()
	}
}

// startCycleLocked begins one intro-program-outro pass. It returns true
// when the program should start immediately; the caller makes that call
// after releasing the lock.
func (p *SlideAudioPlayer) startCycleLocked() bool {
	intro := p.settings.IntroDelay()
	if intro > 0 {
		p.phase = phaseIntroWait
		gen := p.gen
		p.log.Info("intro delay", "program", p.settings.AudioProgramName, "delay", intro)
		p.timer.Arm(intro, func() { p.handleIntroElapsed(gen) })
		return false
	}
	p.phase = phaseRunning
	return true
}

func (p *SlideAudioPlayer) handleIntroElapsed(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.phase != phaseIntroWait {
		p.mu.Unlock()
		return
	}
	p.phase = phaseRunning
	p.mu.Unlock()
	p.playProgram()
}

func (p *SlideAudioPlayer) playProgram() {
	if err := p.program.Play(); err != nil {
		p.log.Warn("audio program failed to start", "err", err)
		p.mu.Lock()
		p.phase = phaseStopped
		p.mu.Unlock()
	}
}

// handleProgramFinished runs when the program player completes all its
// tracks and loops. The outro padding keeps the slide's audio phase
// active for its duration, then the cycle either repeats or ends.
func (p *SlideAudioPlayer) handleProgramFinished() {
	p.mu.Lock()
	if p.phase != phaseRunning {
		p.mu.Unlock()
		return
	}
	outro := p.settings.OutroDuration()
	if outro > 0 {
		p.phase = phaseOutroWait
		gen := p.gen
		p.log.Info("outro padding", "program", p.settings.AudioProgramName, "duration", outro)
		p.timer.Arm(outro, func() { p.handleOutroElapsed(gen) })
		p.mu.Unlock()
		return
	}
	playNow := p.afterOutroLocked()
	p.mu.Unlock()
	if playNow {
		p.playProgram()
	}
}

func (p *SlideAudioPlayer) handleOutroElapsed(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.phase != phaseOutroWait {
		p.mu.Unlock()
		return
	}
	playNow := p.afterOutroLocked()
	p.mu.Unlock()
	if playNow {
		p.playProgram()
	}
}

// afterOutroLocked closes one cycle: repeat it when the slide loops its
// audio, otherwise go quiet. Returns true when the repeat should start
// the program immediately.
func (p *SlideAudioPlayer) afterOutroLocked() bool {
	if p.settings.LoopAudioProgram {
		p.log.Info("restarting audio cycle", "program", p.settings.AudioProgramName)
		return p.startCycleLocked()
	}
	p.log.Info("audio cycle complete", "program", p.settings.AudioProgramName)
	p.phase = phaseStopped
	return false
}

// Stop cancels intro and outro timers, stops the underlying program and
// resets the volume to the default for whatever plays next. Idempotent.
func (p *SlideAudioPlayer) Stop() {
	p.mu.Lock()
	p.gen++
	p.timer.Cancel()
	wasActive := p.phase != phaseStopped
	p.phase = phaseStopped
	p.settings = SlideAudioSettings{}
	neutral := p.neutral
	p.mu.Unlock()

	p.program.Stop()
	p.program.SetVolume(neutral)
	if wasActive {
		p.log.Debug("slide audio stopped")
	}
}

// Pause suspends a running program. Intro and outro waits are not
// pausable; pausing during them only affects the underlying engine,
// which is idle anyway.
func (p *SlideAudioPlayer) Pause() {
	p.program.Pause()
}

// Resume continues a paused program.
func (p *SlideAudioPlayer) Resume() {
	p.program.Resume()
}

// IsAudioActive reports whether the slide's audio cycle is anywhere
// between intro start and outro end.
func (p *SlideAudioPlayer) IsAudioActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase != phaseStopped
}
