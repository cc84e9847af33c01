package playback

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// VoiceOverPlayer plays a single narration track on its own engine, on
// top of whatever the slide's program audio is doing. One voice-over at
// a time: starting a new one tears the current one down first.
type VoiceOverPlayer struct {
	mu      sync.Mutex
	engine  Engine
	library Library
	log     *log.Logger

	machine   *StateMachine
	track     string
	path      string
	startMs   int64
	defVolume float64
	gen       uint64
	stopping  bool

	onFinished func(track string)
	onError    func(track string, err error)
}

// NewVoiceOverPlayer creates an idle voice-over player bound to one
// engine.
func NewVoiceOverPlayer(engine Engine, library Library, logger *log.Logger) *VoiceOverPlayer {
	p := &VoiceOverPlayer{
		engine:    engine,
		library:   library,
		log:       logger.With("component", "voice-over"),
		machine:   NewPlayerStateMachine(),
		defVolume: DefaultVoiceOverVolume,
	}
	engine.SetNotifyFunc(p.handleEngineNotification)
	return p
}

// SetDefaultVolume overrides the volume used when Play is called with a
// negative volume. Out-of-range values are ignored.
func (p *VoiceOverPlayer) SetDefaultVolume(v float64) {
	if v < 0 || v > 1 {
		return
	}
	p.mu.Lock()
	p.defVolume = v
	p.mu.Unlock()
}

// OnFinished registers the callback fired when a voice-over reaches its
// end or is cut short by an error.
func (p *VoiceOverPlayer) OnFinished(fn func(track string)) {
	p.mu.Lock()
	p.onFinished = fn
	p.mu.Unlock()
}

// OnError registers the callback for playback errors. The finished
// callback still fires afterwards.
func (p *VoiceOverPlayer) OnError(fn func(track string, err error)) {
	p.mu.Lock()
	p.onError = fn
	p.mu.Unlock()
}

// Play starts the named track at startMs with the given volume. A
// negative volume selects the voice-over default. Any voice-over
// already playing is stopped first and its finished callback fires
// before the new track loads.
func (p *VoiceOverPlayer) Play(trackName string, volume float64, startMs int64) error {
	if trackName == "" {
		return ErrNoTrackName
	}
	if volume > 1 {
		return ErrInvalidVolume
	}
	if volume < 0 {
		p.mu.Lock()
		volume = p.defVolume
		p.mu.Unlock()
	}

	p.Stop()

	meta, err := p.library.LoadTrackMetadata(trackName)
	if err != nil {
		return fmt.Errorf("loading voice-over %q: %w", trackName, err)
	}
	path, err := p.library.MediaPath(meta.FilePath)
	if err != nil {
		return fmt.Errorf("voice-over %q media: %w", trackName, err)
	}

	p.mu.Lock()
	p.track = trackName
	p.path = path
	p.startMs = startMs
	p.gen++
	p.machine.Transition(StateLoading)
	p.mu.Unlock()

	p.log.Info("voice-over starting", "track", trackName, "start_ms", startMs, "volume", volume)
	p.engine.SetVolume(volume)
	p.engine.SetSource(path)
	return nil
}

// Stop tears down the current voice-over, if any. The finished callback
// fires so listeners waiting on the voice-over don't wait forever.
// Idempotent.
func (p *VoiceOverPlayer) Stop() {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return
	}
	if !p.machine.Active() {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	p.gen++
	track := p.track
	p.track = ""
	p.path = ""
	p.machine.Transition(StateStopping)
	p.machine.Transition(StateIdle)
	finishedCb := p.onFinished
	p.mu.Unlock()

	p.engine.Stop()
	p.log.Info("voice-over stopped", "track", track)

	p.mu.Lock()
	p.stopping = false
	p.mu.Unlock()

	if finishedCb != nil {
		finishedCb(track)
	}
}

// IsActive reports whether a voice-over is loading or playing.
func (p *VoiceOverPlayer) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.Active()
}

// CurrentTrack returns the playing track's name, or "" when idle.
func (p *VoiceOverPlayer) CurrentTrack() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track
}

// finishLocked tears down after natural end or error and returns the
// callback to fire once the lock is released.
func (p *VoiceOverPlayer) finishLocked() func() {
	track := p.track
	p.track = ""
	p.path = ""
	p.gen++
	if p.machine.Active() {
		p.machine.Transition(StateStopping)
	}
	if p.machine.Is(StateStopping) {
		p.machine.Transition(StateIdle)
	}
	finishedCb := p.onFinished
	engine := p.engine
	return func() {
		engine.Stop()
		if finishedCb != nil {
			finishedCb(track)
		}
	}
}

// handleEngineNotification drives the voice-over lifecycle. Source
// matching keeps a notification from a superseded track from touching
// the current one.
func (p *VoiceOverPlayer) handleEngineNotification(n EngineNotification) {
	p.mu.Lock()
	if p.stopping || !p.machine.Active() {
		p.mu.Unlock()
		return
	}

	fire := func() {}
	switch n.Event {
	case EventSourceLoaded:
		if n.Source != p.path {
			p.log.Debug("stale source_loaded ignored", "source", n.Source)
			break
		}
		if p.startMs > 0 && p.engine.IsSeekable() {
			p.engine.Seek(p.startMs)
		}
		p.engine.Play()

	case EventStateChanged:
		if n.State == EnginePlaying && !p.machine.Is(StatePlaying) {
			p.machine.Transition(StatePlaying)
		}

	case EventEndOfMedia:
		if n.Source != p.path {
			p.log.Debug("stale end_of_media ignored", "source", n.Source)
			break
		}
		p.log.Info("voice-over finished", "track", p.track)
		fire = p.finishLocked()

	case EventInvalidMedia, EventError:
		track := p.track
		err := n.Err
		if err == nil {
			err = fmt.Errorf("invalid media for voice-over %q", track)
		}
		p.log.Error("voice-over error", "track", track, "err", err)
		errCb := p.onError
		finish := p.finishLocked()
		fire = func() {
			if errCb != nil {
				errCb(track, err)
			}
			finish()
		}

	case EventDurationKnown, EventNoMedia:
	}
	p.mu.Unlock()
	fire()
}
