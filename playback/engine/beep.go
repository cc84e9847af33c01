package engine

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/alphapresenter/alphapresenter/playback"
)

// The speaker is a process-wide singleton; every Beep engine mixes into
// it. Initialized once at the first engine's sample rate.
var (
	speakerOnce sync.Once
	speakerErr  error
	speakerRate beep.SampleRate
)

func initSpeaker(sampleRate int, bufferLength time.Duration) error {
	speakerOnce.Do(func() {
		speakerRate = beep.SampleRate(sampleRate)
		speakerErr = speaker.Init(speakerRate, speakerRate.N(bufferLength))
	})
	return speakerErr
}

// Beep plays audio files through the system output using the beep
// library. One Beep engine holds at most one source; several engines
// mix into the shared speaker, which is how program audio and
// voice-overs sound at the same time.
type Beep struct {
	mu     sync.Mutex
	notify func(playback.EngineNotification)

	source   string
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	linear   float64
	playing  bool

	queue chan playback.EngineNotification
	done  chan struct{}
}

// NewBeep creates an engine mixing into the shared speaker. The first
// call fixes the speaker's sample rate; later engines resample to it.
func NewBeep(sampleRate int, bufferLength time.Duration) (*Beep, error) {
	if err := initSpeaker(sampleRate, bufferLength); err != nil {
		return nil, fmt.Errorf("initializing speaker: %w", err)
	}
	b := &Beep{
		linear: 1,
		queue:  make(chan playback.EngineNotification, 16),
		done:   make(chan struct{}),
	}
	go b.deliver()
	return b, nil
}

// deliver serializes notifications on their own goroutine so they never
// run inside an engine command or under the speaker lock.
func (b *Beep) deliver() {
	for n := range b.queue {
		b.mu.Lock()
		notify := b.notify
		b.mu.Unlock()
		if notify != nil {
			notify(n)
		}
	}
	close(b.done)
}

// Close releases the current source and stops notification delivery.
func (b *Beep) Close() {
	b.Stop()
	b.mu.Lock()
	b.closeSourceLocked()
	b.mu.Unlock()
	close(b.queue)
	<-b.done
}

func (b *Beep) emit(n playback.EngineNotification) {
	select {
	case b.queue <- n:
	default:
		// A full queue means the listener is gone; drop rather than
		// block the audio path.
	}
}

// SetNotifyFunc implements playback.Engine.
func (b *Beep) SetNotifyFunc(fn func(playback.EngineNotification)) {
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

// SetSource implements playback.Engine. It opens and decodes the file,
// then reports source-loaded and, when the decoder knows it, the
// duration. Decode failures report invalid media.
func (b *Beep) SetSource(uri string) {
	b.Stop()

	b.mu.Lock()
	b.closeSourceLocked()
	b.source = uri
	b.mu.Unlock()

	f, err := os.Open(uri)
	if err != nil {
		b.emit(playback.EngineNotification{
			Event:  playback.EventInvalidMedia,
			Source: uri,
			Err:    fmt.Errorf("opening %s: %w", uri, err),
		})
		return
	}

	streamer, format, err := decode(uri, f)
	if err != nil {
		f.Close()
		b.emit(playback.EngineNotification{
			Event:  playback.EventInvalidMedia,
			Source: uri,
			Err:    err,
		})
		return
	}

	b.mu.Lock()
	b.file = f
	b.streamer = streamer
	b.format = format
	b.mu.Unlock()

	b.emit(playback.EngineNotification{Event: playback.EventSourceLoaded, Source: uri})
	if n := streamer.Len(); n > 0 {
		b.emit(playback.EngineNotification{
			Event:      playback.EventDurationKnown,
			Source:     uri,
			DurationMs: format.SampleRate.D(n).Milliseconds(),
		})
	}
}

// decode picks the decoder by file extension.
func decode(uri string, f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(uri)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg", ".oga":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %s", uri)
	}
}

// Play implements playback.Engine. The first play after a load builds
// the resample-volume-control chain and hands it to the speaker; play
// after pause just unpauses.
func (b *Beep) Play() {
	b.mu.Lock()
	if b.streamer == nil {
		source := b.source
		b.mu.Unlock()
		b.emit(playback.EngineNotification{Event: playback.EventNoMedia, Source: source})
		return
	}
	source := b.source

	if b.ctrl != nil {
		speaker.Lock()
		b.ctrl.Paused = false
		speaker.Unlock()
		b.playing = true
		b.mu.Unlock()
		b.emit(playback.EngineNotification{
			Event:  playback.EventStateChanged,
			Source: source,
			State:  playback.EnginePlaying,
		})
		return
	}

	var stream beep.Streamer = b.streamer
	if b.format.SampleRate != speakerRate {
		stream = beep.Resample(4, b.format.SampleRate, speakerRate, stream)
	}
	b.ctrl = &beep.Ctrl{
		Streamer: beep.Seq(stream, beep.Callback(func() {
			b.handleDrained(source)
		})),
	}
	b.volume = &effects.Volume{
		Streamer: b.ctrl,
		Base:     2,
		Volume:   linearToVolume(b.linear),
		Silent:   b.linear == 0,
	}
	b.playing = true
	volume := b.volume
	b.mu.Unlock()

	speaker.Play(volume)
	b.emit(playback.EngineNotification{
		Event:  playback.EventStateChanged,
		Source: source,
		State:  playback.EnginePlaying,
	})
}

// handleDrained runs under the speaker lock when the streamer ends, so
// it only queues work.
func (b *Beep) handleDrained(source string) {
	go func() {
		b.mu.Lock()
		current := b.source == source && b.playing
		if current {
			b.playing = false
			b.ctrl = nil
			b.volume = nil
		}
		b.mu.Unlock()
		if current {
			b.emit(playback.EngineNotification{Event: playback.EventEndOfMedia, Source: source})
		}
	}()
}

// Pause implements playback.Engine.
func (b *Beep) Pause() {
	b.mu.Lock()
	source := b.source
	if b.ctrl == nil {
		b.mu.Unlock()
		return
	}
	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()
	b.playing = false
	b.mu.Unlock()
	b.emit(playback.EngineNotification{
		Event:  playback.EventStateChanged,
		Source: source,
		State:  playback.EnginePaused,
	})
}

// Stop implements playback.Engine. The control's streamer is detached
// under the speaker lock, which drains it out of the mixer.
func (b *Beep) Stop() {
	b.mu.Lock()
	source := b.source
	wasPlaying := b.ctrl != nil
	if b.ctrl != nil {
		speaker.Lock()
		b.ctrl.Streamer = nil
		speaker.Unlock()
		b.ctrl = nil
		b.volume = nil
	}
	b.playing = false
	if b.streamer != nil {
		speaker.Lock()
		b.streamer.Seek(0)
		speaker.Unlock()
	}
	b.mu.Unlock()

	if wasPlaying {
		b.emit(playback.EngineNotification{
			Event:  playback.EventStateChanged,
			Source: source,
			State:  playback.EngineStopped,
		})
	}
}

// Seek implements playback.Engine.
func (b *Beep) Seek(ms int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return
	}
	n := b.format.SampleRate.N(time.Duration(ms) * time.Millisecond)
	if n < 0 {
		n = 0
	}
	if l := b.streamer.Len(); l > 0 && n > l {
		n = l
	}
	speaker.Lock()
	b.streamer.Seek(n)
	speaker.Unlock()
}

// PositionMs implements playback.Engine.
func (b *Beep) PositionMs() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := b.streamer.Position()
	speaker.Unlock()
	return b.format.SampleRate.D(pos).Milliseconds()
}

// IsSeekable implements playback.Engine. Every supported decoder
// returns a seekable streamer.
func (b *Beep) IsSeekable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streamer != nil
}

// SetVolume implements playback.Engine. The linear [0, 1] factor maps
// onto beep's exponential volume scale.
func (b *Beep) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	b.mu.Lock()
	b.linear = v
	if b.volume != nil {
		speaker.Lock()
		b.volume.Volume = linearToVolume(v)
		b.volume.Silent = v == 0
		speaker.Unlock()
	}
	b.mu.Unlock()
}

// linearToVolume converts a linear gain factor to the exponent beep's
// Volume effect applies to its base. Zero is handled by Silent.
func linearToVolume(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log2(v)
}

func (b *Beep) closeSourceLocked() {
	if b.streamer != nil {
		b.streamer.Close()
		b.streamer = nil
	}
	if b.file != nil {
		b.file = nil
	}
	b.source = ""
	b.format = beep.Format{}
}
