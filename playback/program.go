package playback

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// queuedTrack is one playable entry of a loaded program, resolved
// against its track metadata. durationMs is -1 when the effective
// duration is unknown and the track plays to its natural end; endMs is
// -1 when no deadline timer should be armed for the track.
type queuedTrack struct {
	meta       *TrackMetadata
	path       string
	startMs    int64
	endMs      int64
	durationMs int64
}

// ProgramPlayer plays the tracks of one audio program back to back,
// honoring per-track start/end trims and the program's loop policy. It
// owns a single playback engine instance.
//
// Any single-track failure advances to the next track; a program whose
// every track errors drains the queue and completes silently. That
// mirrors the intended error policy: a broken track must never stall
// the rest of the program.
type ProgramPlayer struct {
	mu      sync.Mutex
	engine  Engine
	library Library
	log     *log.Logger

	machine *StateMachine
	program *Program
	queue   []queuedTrack
	idx     int

	loopIndefinitely bool
	initialLoops     int
	loopsRemaining   int

	gen      uint64
	stopping bool
	deadline oneShot

	onTrackChanged func(name string)
	onFinished     func()
	onError        func(err error)
}

// NewProgramPlayer creates an idle program player bound to one engine.
func NewProgramPlayer(engine Engine, library Library, logger *log.Logger) *ProgramPlayer {
	p := &ProgramPlayer{
		engine:  engine,
		library: library,
		log:     logger.With("component", "program-player"),
		machine: NewPlayerStateMachine(),
		idx:     -1,
	}
	engine.SetNotifyFunc(p.handleEngineNotification)
	return p
}

// OnTrackChanged registers the callback fired when a new track starts.
func (p *ProgramPlayer) OnTrackChanged(fn func(name string)) {
	p.mu.Lock()
	p.onTrackChanged = fn
	p.mu.Unlock()
}

// OnFinished registers the callback fired when the program, including
// all loops, completes.
func (p *ProgramPlayer) OnFinished(fn func()) {
	p.mu.Lock()
	p.onFinished = fn
	p.mu.Unlock()
}

// OnError registers the callback for non-fatal per-track errors.
func (p *ProgramPlayer) OnError(fn func(err error)) {
	p.mu.Lock()
	p.onError = fn
	p.mu.Unlock()
}

// LoadProgram stops any current playback, resolves the named program's
// track entries against their metadata and builds the playable queue.
// Entries with missing metadata, missing media or a non-positive
// effective duration are dropped with a warning. An empty resulting
// queue fails the load and the caller must treat the program as absent.
func (p *ProgramPlayer) LoadProgram(name string) error {
	p.Stop()

	program, err := p.library.LoadProgram(name)
	if err != nil {
		return fmt.Errorf("loading program %q: %w", name, err)
	}

	entries := make([]ProgramTrackEntry, len(program.Tracks))
	copy(entries, program.Tracks)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PlayOrder < entries[j].PlayOrder
	})

	queue := make([]queuedTrack, 0, len(entries))
	for _, entry := range entries {
		if entry.TrackName == "" {
			p.log.Warn("track entry missing track_name, skipping")
			continue
		}
		meta, err := p.library.LoadTrackMetadata(entry.TrackName)
		if err != nil {
			p.log.Warn("track metadata missing, skipping", "track", entry.TrackName, "err", err)
			continue
		}
		if meta.FilePath == "" {
			p.log.Warn("track has no file path, skipping", "track", entry.TrackName)
			continue
		}
		path, err := p.library.MediaPath(meta.FilePath)
		if err != nil {
			p.log.Warn("media file not found, skipping", "track", entry.TrackName, "err", err)
			continue
		}

		qt := queuedTrack{
			meta:       meta,
			path:       path,
			startMs:    entry.UserStartTimeMs,
			endMs:      -1,
			durationMs: -1,
		}
		if meta.DetectedDurationMs != nil {
			detected := *meta.DetectedDurationMs
			if entry.UserEndTimeMs != nil && *entry.UserEndTimeMs > entry.UserStartTimeMs {
				qt.durationMs = *entry.UserEndTimeMs - entry.UserStartTimeMs
				qt.endMs = *entry.UserEndTimeMs
			} else {
				qt.durationMs = detected - entry.UserStartTimeMs
			}
			if qt.durationMs <= 0 {
				p.log.Warn("non-positive effective duration, skipping",
					"track", entry.TrackName, "start_ms", entry.UserStartTimeMs)
				continue
			}
		} else if entry.UserEndTimeMs != nil {
			// Duration unknown; the user end time still bounds playback
			// via the deadline timer.
			if *entry.UserEndTimeMs <= entry.UserStartTimeMs {
				p.log.Warn("end time not after start time, skipping", "track", entry.TrackName)
				continue
			}
			qt.endMs = *entry.UserEndTimeMs
		}
		queue = append(queue, qt)
	}

	if len(queue) == 0 {
		p.log.Warn("no playable tracks in program", "program", name)
		return fmt.Errorf("program %q: %w", name, ErrNoPlayableTracks)
	}

	p.mu.Lock()
	p.program = program
	p.queue = queue
	p.idx = -1
	p.loopIndefinitely = program.LoopIndefinitely
	p.initialLoops = program.LoopCount
	p.loopsRemaining = program.LoopCount
	p.mu.Unlock()

	p.log.Info("program loaded", "program", name, "tracks", len(queue),
		"loop_indefinitely", program.LoopIndefinitely, "loop_count", program.LoopCount)
	return nil
}

// Play starts the queue at its first track, or resumes if paused.
func (p *ProgramPlayer) Play() error {
	p.mu.Lock()
	if p.program == nil || len(p.queue) == 0 {
		p.mu.Unlock()
		return ErrNoProgramLoaded
	}
	switch p.machine.Current() {
	case StatePlaying, StateLoading:
		p.mu.Unlock()
		return nil
	case StatePaused:
		p.mu.Unlock()
		p.Resume()
		return nil
	}
	p.idx = 0
	p.loopsRemaining = p.initialLoops
	fire := p.startCurrentTrackLocked()
	p.mu.Unlock()
	fire()
	return nil
}

// Pause suspends the current track, canceling its deadline timer. The
// deadline is re-armed from the resume position when playback resumes.
func (p *ProgramPlayer) Pause() {
	p.mu.Lock()
	if !p.machine.Is(StatePlaying) {
		p.mu.Unlock()
		return
	}
	p.machine.Transition(StatePaused)
	p.deadline.Cancel()
	p.mu.Unlock()
	p.engine.Pause()
}

// Resume continues a paused program. The state moves back to playing
// on the engine's own playing notification, which is also what re-arms
// the deadline from the actual resume position.
func (p *ProgramPlayer) Resume() {
	p.mu.Lock()
	if !p.machine.Is(StatePaused) {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.engine.Play()
}

// Stop cancels any pending deadline, stops the engine and clears the
// queue position. Idempotent; the loaded queue itself is retained so
// Play can restart the program from the top.
func (p *ProgramPlayer) Stop() {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	p.gen++
	p.deadline.Cancel()
	p.idx = -1
	if p.machine.Active() {
		p.machine.Transition(StateStopping)
	}
	if p.machine.Is(StateStopping) {
		p.machine.Transition(StateIdle)
	}
	p.mu.Unlock()

	p.engine.Stop()

	p.mu.Lock()
	p.stopping = false
	p.mu.Unlock()
}

// IsActive reports whether the player is loading, playing or paused.
func (p *ProgramPlayer) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.Active()
}

// State returns the player's current state.
func (p *ProgramPlayer) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.Current()
}

// SetVolume sets the engine output volume.
func (p *ProgramPlayer) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return ErrInvalidVolume
	}
	p.engine.SetVolume(v)
	p.log.Debug("volume set", "volume", v)
	return nil
}

// TotalDuration returns the loaded program's total effective duration
// across all loops. The second return is false when the duration is
// indeterminate: a track with unknown duration, or indefinite looping.
func (p *ProgramPlayer) TotalDuration() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return 0, true
	}
	if p.loopIndefinitely {
		return 0, false
	}
	var totalMs int64
	for _, qt := range p.queue {
		if qt.durationMs < 0 {
			return 0, false
		}
		totalMs += qt.durationMs
	}
	totalMs *= int64(1 + p.initialLoops)
	return time.Duration(totalMs) * time.Millisecond, true
}

// currentLocked returns the queue entry at the current index.
func (p *ProgramPlayer) currentLocked() (queuedTrack, bool) {
	if p.idx < 0 || p.idx >= len(p.queue) {
		return queuedTrack{}, false
	}
	return p.queue[p.idx], true
}

// startCurrentTrackLocked submits the current track's source to the
// engine and returns the callback to fire once the lock is released.
func (p *ProgramPlayer) startCurrentTrackLocked() func() {
	qt, ok := p.currentLocked()
	if !ok {
		return p.handleProgramEndLocked()
	}
	p.machine.Transition(StateLoading)
	p.log.Info("starting track",
		"track", qt.meta.TrackName, "position", p.idx+1, "of", len(p.queue),
		"start_ms", qt.startMs)

	engine := p.engine
	path := qt.path
	trackCb := p.onTrackChanged
	name := qt.meta.TrackName
	return func() {
		if trackCb != nil {
			trackCb(name)
		}
		engine.SetSource(path)
	}
}

// advanceLocked moves past the current track, starting the next one or
// applying the loop policy at the end of the queue.
func (p *ProgramPlayer) advanceLocked() func() {
	p.deadline.Cancel()
	p.idx++
	if p.idx < len(p.queue) {
		return p.startCurrentTrackLocked()
	}
	return p.handleProgramEndLocked()
}

// handleProgramEndLocked applies the loop policy once the queue is
// exhausted: indefinite looping restarts unconditionally, a remaining
// loop count decrements and restarts, otherwise the program finishes.
func (p *ProgramPlayer) handleProgramEndLocked() func() {
	if p.loopIndefinitely {
		p.log.Info("looping program indefinitely")
		p.idx = 0
		return p.startCurrentTrackLocked()
	}
	if p.loopsRemaining > 0 {
		p.loopsRemaining--
		p.log.Info("looping program", "loops_remaining", p.loopsRemaining)
		p.idx = 0
		return p.startCurrentTrackLocked()
	}

	p.log.Info("program finished")
	p.idx = -1
	if p.machine.Active() {
		p.machine.Transition(StateStopping)
	}
	if p.machine.Is(StateStopping) {
		p.machine.Transition(StateIdle)
	}
	finishedCb := p.onFinished
	engine := p.engine
	gen := p.gen
	return func() {
		engine.Stop()
		// Guard against a listener having torn us down in between.
		p.mu.Lock()
		stale := gen != p.gen
		p.mu.Unlock()
		if !stale && finishedCb != nil {
			finishedCb()
		}
	}
}

// armDeadlineLocked arms the custom end-time timer for the current
// track. The deadline is computed from the engine's actual position so
// a mid-track resume doesn't shorten the segment. Tracks without a
// known end play until the engine reports end-of-media.
//
// The deadline intentionally races the engine's own end-of-media
// notification near trimmed boundaries; whichever fires first advances
// and the loser is discarded by the generation guard.
func (p *ProgramPlayer) armDeadlineLocked(qt queuedTrack) {
	if qt.endMs < 0 {
		return
	}
	pos := p.engine.PositionMs()
	effStart := qt.startMs
	if pos > effStart {
		effStart = pos
	}
	remaining := qt.endMs - effStart
	gen := p.gen
	if remaining <= 0 {
		p.log.Warn("custom end not after effective start, advancing",
			"track", qt.meta.TrackName, "end_ms", qt.endMs, "position_ms", effStart)
		p.deadline.Arm(0, func() { p.handleDeadline(gen) })
		return
	}
	p.log.Debug("deadline armed", "track", qt.meta.TrackName, "in_ms", remaining)
	p.deadline.Arm(time.Duration(remaining)*time.Millisecond, func() { p.handleDeadline(gen) })
}

// handleDeadline fires when a track's custom end time is reached. It
// stops the current track and advances exactly as end-of-media would.
func (p *ProgramPlayer) handleDeadline(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.stopping || !p.machine.Active() {
		p.mu.Unlock()
		return
	}
	qt, ok := p.currentLocked()
	if !ok {
		p.mu.Unlock()
		return
	}
	p.log.Info("custom end time reached", "track", qt.meta.TrackName)
	p.engine.Stop()
	fire := p.advanceLocked()
	p.mu.Unlock()
	fire()
}

// handleEngineNotification is the single entry point for engine events.
// Events are discarded while stopping, and events whose source doesn't
// match the current track are stale leftovers of a superseded context.
func (p *ProgramPlayer) handleEngineNotification(n EngineNotification) {
	p.mu.Lock()
	if p.stopping || p.program == nil {
		p.mu.Unlock()
		return
	}
	qt, ok := p.currentLocked()
	if !ok {
		p.mu.Unlock()
		return
	}

	fire := func() {}
	switch n.Event {
	case EventSourceLoaded:
		if n.Source != qt.path {
			p.log.Debug("stale source_loaded ignored", "source", n.Source)
			break
		}
		if qt.startMs > 0 && p.engine.IsSeekable() {
			p.engine.Seek(qt.startMs)
		}
		p.engine.Play()

	case EventStateChanged:
		if n.State == EnginePlaying && !p.machine.Is(StatePlaying) {
			p.machine.Transition(StatePlaying)
			p.armDeadlineLocked(qt)
		}

	case EventEndOfMedia:
		if n.Source != qt.path {
			p.log.Debug("stale end_of_media ignored", "source", n.Source)
			break
		}
		p.log.Info("end of media", "track", qt.meta.TrackName)
		fire = p.advanceLocked()

	case EventInvalidMedia:
		p.log.Error("invalid media, skipping track", "track", qt.meta.TrackName)
		errCb := p.onError
		advance := p.advanceLocked()
		name := qt.meta.TrackName
		fire = func() {
			if errCb != nil {
				errCb(fmt.Errorf("invalid media for track %q", name))
			}
			advance()
		}

	case EventError:
		p.log.Error("engine error, skipping track", "track", qt.meta.TrackName, "err", n.Err)
		errCb := p.onError
		advance := p.advanceLocked()
		err := n.Err
		fire = func() {
			if errCb != nil {
				errCb(err)
			}
			advance()
		}

	case EventDurationKnown, EventNoMedia:
		// Informational only.
	}
	p.mu.Unlock()
	fire()
}
