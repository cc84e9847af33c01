package playback_test

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alphapresenter/alphapresenter/playback"
)

// fakeLibrary serves metadata from maps. Media references resolve to
// "/media/<ref>" unless listed as missing.
type fakeLibrary struct {
	tracks     map[string]*playback.TrackMetadata
	programs   map[string]*playback.Program
	paragraphs map[string]*playback.Paragraph
	missing    map[string]bool
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		tracks:     make(map[string]*playback.TrackMetadata),
		programs:   make(map[string]*playback.Program),
		paragraphs: make(map[string]*playback.Paragraph),
		missing:    make(map[string]bool),
	}
}

func (f *fakeLibrary) addTrack(name string, durationMs int64) {
	f.tracks[name] = &playback.TrackMetadata{
		TrackName:          name,
		FilePath:           name + ".mp3",
		DetectedDurationMs: &durationMs,
	}
}

func (f *fakeLibrary) addTrackUnknownDuration(name string) {
	f.tracks[name] = &playback.TrackMetadata{
		TrackName: name,
		FilePath:  name + ".mp3",
	}
}

func (f *fakeLibrary) LoadTrackMetadata(name string) (*playback.TrackMetadata, error) {
	meta, ok := f.tracks[name]
	if !ok {
		return nil, fmt.Errorf("track %q: %w", name, playback.ErrNotFound)
	}
	return meta, nil
}

func (f *fakeLibrary) LoadProgram(name string) (*playback.Program, error) {
	program, ok := f.programs[name]
	if !ok {
		return nil, fmt.Errorf("program %q: %w", name, playback.ErrNotFound)
	}
	return program, nil
}

func (f *fakeLibrary) LoadParagraph(name string) (*playback.Paragraph, error) {
	para, ok := f.paragraphs[name]
	if !ok {
		return nil, fmt.Errorf("paragraph %q: %w", name, playback.ErrNotFound)
	}
	return para, nil
}

func (f *fakeLibrary) MediaPath(rel string) (string, error) {
	if rel == "" || f.missing[rel] {
		return "", fmt.Errorf("media %q: %w", rel, playback.ErrNotFound)
	}
	return "/media/" + rel, nil
}

func mediaPath(track string) string {
	return "/media/" + track + ".mp3"
}

// fakeDisplay records everything shown.
type fakeDisplay struct {
	mu     sync.Mutex
	texts  []string
	clears int
	images [][]string
}

func (f *fakeDisplay) DisplayText(text string) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
}

func (f *fakeDisplay) ClearText() {
	f.mu.Lock()
	f.clears++
	f.mu.Unlock()
}

func (f *fakeDisplay) DisplayImages(layers []string) {
	f.mu.Lock()
	f.images = append(f.images, layers)
	f.mu.Unlock()
}

func (f *fakeDisplay) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

func (f *fakeDisplay) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

func (f *fakeDisplay) LastImages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.images) == 0 {
		return nil
	}
	return f.images[len(f.images)-1]
}

func testLogger() *log.Logger {
	logger := log.New(io.Discard)
	logger.SetLevel(log.FatalLevel)
	return logger
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
