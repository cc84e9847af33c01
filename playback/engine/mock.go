// Package engine provides playback engine implementations behind the
// playback.Engine contract: a real audio output built on beep and a
// scriptable in-memory engine for tests.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/alphapresenter/alphapresenter/playback"
)

// Mock is a scriptable in-memory engine. Notifications are delivered
// on a dedicated goroutine, never from inside the command methods, the
// same asynchrony the real engine has. Tests use Sync to wait for all
// queued notifications to be handled.
type Mock struct {
	mu     sync.Mutex
	notify func(playback.EngineNotification)

	source   string
	state    playback.EngineState
	position int64
	volume   float64
	seekable bool

	durations  map[string]int64
	loadErrors map[string]error
	speed      float64
	auto       bool

	endTimer *time.Timer
	calls    []string

	queue chan queued
	done  chan struct{}
}

type queued struct {
	note playback.EngineNotification
	sync chan struct{}
}

// NewMock creates a mock engine. With auto set, SetSource and Play
// drive the full load-play-end notification cycle by themselves, with
// track length taken from SetDuration scaled down by the speed
// multiplier.
func NewMock(auto bool) *Mock {
	m := &Mock{
		durations:  make(map[string]int64),
		loadErrors: make(map[string]error),
		speed:      1,
		seekable:   true,
		auto:       auto,
		volume:     1,
		queue:      make(chan queued, 64),
		done:       make(chan struct{}),
	}
	go m.deliver()
	return m
}

func (m *Mock) deliver() {
	for q := range m.queue {
		if q.sync != nil {
			close(q.sync)
			continue
		}
		m.mu.Lock()
		notify := m.notify
		m.mu.Unlock()
		if notify != nil {
			notify(q.note)
		}
	}
	close(m.done)
}

// Close stops the delivery goroutine. The engine is unusable after.
func (m *Mock) Close() {
	close(m.queue)
	<-m.done
}

// Sync blocks until every notification queued before the call has been
// delivered and handled.
func (m *Mock) Sync() {
	ch := make(chan struct{})
	m.queue <- queued{sync: ch}
	<-ch
}

func (m *Mock) emit(n playback.EngineNotification) {
	m.queue <- queued{note: n}
}

// SetDuration scripts a source's length so auto mode can schedule its
// end-of-media.
func (m *Mock) SetDuration(source string, ms int64) {
	m.mu.Lock()
	m.durations[source] = ms
	m.mu.Unlock()
}

// SetLoadError makes future loads of source fail as invalid media.
func (m *Mock) SetLoadError(source string, err error) {
	m.mu.Lock()
	m.loadErrors[source] = err
	m.mu.Unlock()
}

// SetSpeed scales auto-mode playback time. Speed 100 turns a scripted
// 5000ms track into 50ms of wall time.
func (m *Mock) SetSpeed(speed float64) {
	m.mu.Lock()
	if speed > 0 {
		m.speed = speed
	}
	m.mu.Unlock()
}

// SetSeekable controls the IsSeekable answer.
func (m *Mock) SetSeekable(ok bool) {
	m.mu.Lock()
	m.seekable = ok
	m.mu.Unlock()
}

// Calls returns the recorded command history.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Volume returns the last volume set.
func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Source returns the current source.
func (m *Mock) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

func (m *Mock) record(call string) {
	m.calls = append(m.calls, call)
}

// SetNotifyFunc implements playback.Engine.
func (m *Mock) SetNotifyFunc(fn func(playback.EngineNotification)) {
	m.mu.Lock()
	m.notify = fn
	m.mu.Unlock()
}

// SetSource implements playback.Engine. In auto mode the load result
// notification follows on the delivery goroutine.
func (m *Mock) SetSource(uri string) {
	m.mu.Lock()
	m.record("set_source " + uri)
	m.stopEndTimerLocked()
	m.source = uri
	m.position = 0
	m.state = playback.EngineStopped
	loadErr, failed := m.loadErrors[uri]
	duration, known := m.durations[uri]
	auto := m.auto
	m.mu.Unlock()

	if !auto {
		return
	}
	if failed {
		m.emit(playback.EngineNotification{
			Event:  playback.EventInvalidMedia,
			Source: uri,
			Err:    loadErr,
		})
		return
	}
	m.emit(playback.EngineNotification{Event: playback.EventSourceLoaded, Source: uri})
	if known {
		m.emit(playback.EngineNotification{
			Event:      playback.EventDurationKnown,
			Source:     uri,
			DurationMs: duration,
		})
	}
}

// Play implements playback.Engine.
func (m *Mock) Play() {
	m.mu.Lock()
	m.record("play")
	m.state = playback.EnginePlaying
	source := m.source
	duration, known := m.durations[source]
	position := m.position
	speed := m.speed
	auto := m.auto
	m.mu.Unlock()

	m.emit(playback.EngineNotification{
		Event:  playback.EventStateChanged,
		Source: source,
		State:  playback.EnginePlaying,
	})

	if !auto || !known {
		return
	}
	remaining := duration - position
	if remaining < 0 {
		remaining = 0
	}
	wall := time.Duration(float64(remaining)/speed) * time.Millisecond
	m.mu.Lock()
	m.stopEndTimerLocked()
	m.endTimer = time.AfterFunc(wall, func() {
		m.mu.Lock()
		if m.source != source || m.state != playback.EnginePlaying {
			m.mu.Unlock()
			return
		}
		m.position = duration
		m.state = playback.EngineStopped
		m.mu.Unlock()
		m.emit(playback.EngineNotification{Event: playback.EventEndOfMedia, Source: source})
	})
	m.mu.Unlock()
}

// Pause implements playback.Engine.
func (m *Mock) Pause() {
	m.mu.Lock()
	m.record("pause")
	m.stopEndTimerLocked()
	m.state = playback.EnginePaused
	source := m.source
	m.mu.Unlock()
	m.emit(playback.EngineNotification{
		Event:  playback.EventStateChanged,
		Source: source,
		State:  playback.EnginePaused,
	})
}

// Stop implements playback.Engine.
func (m *Mock) Stop() {
	m.mu.Lock()
	m.record("stop")
	m.stopEndTimerLocked()
	m.state = playback.EngineStopped
	m.position = 0
	source := m.source
	m.mu.Unlock()
	m.emit(playback.EngineNotification{
		Event:  playback.EventStateChanged,
		Source: source,
		State:  playback.EngineStopped,
	})
}

// Seek implements playback.Engine.
func (m *Mock) Seek(ms int64) {
	m.mu.Lock()
	m.record("seek")
	m.position = ms
	m.mu.Unlock()
}

// PositionMs implements playback.Engine.
func (m *Mock) PositionMs() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// IsSeekable implements playback.Engine.
func (m *Mock) IsSeekable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seekable
}

// SetVolume implements playback.Engine.
func (m *Mock) SetVolume(v float64) {
	m.mu.Lock()
	m.record("set_volume")
	m.volume = v
	m.mu.Unlock()
}

func (m *Mock) stopEndTimerLocked() {
	if m.endTimer != nil {
		m.endTimer.Stop()
		m.endTimer = nil
	}
}

// EmitSourceLoaded injects a source-loaded notification. For tests
// driving the engine manually (auto off).
func (m *Mock) EmitSourceLoaded(source string) {
	m.emit(playback.EngineNotification{Event: playback.EventSourceLoaded, Source: source})
}

// EmitEndOfMedia injects an end-of-media notification.
func (m *Mock) EmitEndOfMedia(source string) {
	m.emit(playback.EngineNotification{Event: playback.EventEndOfMedia, Source: source})
}

// EmitInvalidMedia injects an invalid-media notification.
func (m *Mock) EmitInvalidMedia(source string) {
	m.emit(playback.EngineNotification{
		Event:  playback.EventInvalidMedia,
		Source: source,
		Err:    errors.New("invalid media"),
	})
}

// EmitError injects an engine error notification.
func (m *Mock) EmitError(source string, err error) {
	m.emit(playback.EngineNotification{Event: playback.EventError, Source: source, Err: err})
}

// EmitPlaying injects a playing state-change notification.
func (m *Mock) EmitPlaying(source string) {
	m.emit(playback.EngineNotification{
		Event:  playback.EventStateChanged,
		Source: source,
		State:  playback.EnginePlaying,
	})
}
