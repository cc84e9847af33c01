package playback_test

import (
	"sync"
	"testing"
	"time"

	"github.com/alphapresenter/alphapresenter/playback"
	"github.com/alphapresenter/alphapresenter/playback/engine"
)

type coordinatorFixture struct {
	lib     *fakeLibrary
	display *fakeDisplay
	engine  *engine.Mock

	sequencer  *playback.SentenceSequencer
	slideAudio *playback.SlideAudioPlayer
	coord      *playback.Coordinator

	mu      sync.Mutex
	changes []int
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	f := &coordinatorFixture{
		lib:     newFakeLibrary(),
		display: &fakeDisplay{},
		engine:  engine.NewMock(true),
	}
	t.Cleanup(f.engine.Close)

	logger := testLogger()
	f.sequencer = playback.NewSentenceSequencer(f.lib, f.display, logger)
	program := playback.NewProgramPlayer(f.engine, f.lib, logger)
	f.slideAudio = playback.NewSlideAudioPlayer(program, logger)
	f.coord = playback.NewCoordinator(f.sequencer, f.slideAudio, f.display, logger)
	f.coord.OnSlideChanged(func(index int) {
		f.mu.Lock()
		f.changes = append(f.changes, index)
		f.mu.Unlock()
	})

	f.lib.paragraphs["story"] = &playback.Paragraph{
		Name: "story",
		Sentences: []playback.Sentence{
			{Text: "one", DelaySeconds: 0},
			{Text: "two", DelaySeconds: 0},
			{Text: "three", DelaySeconds: 0},
		},
	}
	f.lib.addTrack("pad", 20)
	f.engine.SetDuration(mediaPath("pad"), 20)
	f.lib.programs["ambient"] = &playback.Program{
		ProgramName: "ambient",
		Tracks:      []playback.ProgramTrackEntry{{TrackName: "pad", PlayOrder: 1}},
	}
	return f
}

func (f *coordinatorFixture) slideChanges() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.changes))
	copy(out, f.changes)
	return out
}

func textSlide(layers []string) playback.Slide {
	return playback.Slide{
		Layers: layers,
		TextOverlay: &playback.TextOverlay{
			ParagraphName: "story",
			StartSentence: 1,
			EndSentence:   playback.EndAll(),
		},
	}
}

func TestCoordinatorShowSlideBounds(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.coord.SetPlaylist([]playback.Slide{{Layers: []string{"a.png"}}})

	if f.coord.ShowSlide(-1) {
		t.Error("ShowSlide(-1) succeeded")
	}
	if f.coord.ShowSlide(1) {
		t.Error("ShowSlide past end succeeded")
	}
	if !f.coord.ShowSlide(0) {
		t.Error("ShowSlide(0) failed")
	}
	if got := f.coord.CurrentSlide(); got != 0 {
		t.Errorf("CurrentSlide = %d, want 0", got)
	}
}

func TestCoordinatorDisplaysImagesAndText(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.coord.SetPlaylist([]playback.Slide{textSlide([]string{"bg.png", "fg.png"})})
	f.coord.ShowSlide(0)

	layers := f.display.LastImages()
	if len(layers) != 2 || layers[0] != "bg.png" {
		t.Errorf("displayed layers %v, want [bg.png fg.png]", layers)
	}
	// Zero duration with text shows the first sentence immediately.
	texts := f.display.Texts()
	if len(texts) != 1 || texts[0] != "one" {
		t.Errorf("displayed texts %v, want [one]", texts)
	}
	if got := f.slideChanges(); len(got) != 1 || got[0] != 0 {
		t.Errorf("slide changes %v, want [0]", got)
	}
}

func TestCoordinatorTeardownIsolation(t *testing.T) {
	f := newCoordinatorFixture(t)
	slideA := textSlide([]string{"a.png"})
	slideA.SlideAudioSettings = playback.SlideAudioSettings{
		AudioProgramName:   "ambient",
		LoopAudioProgram:   true,
		AudioProgramVolume: 0.5,
	}
	slideB := playback.Slide{Layers: []string{"b.png"}}
	f.coord.SetPlaylist([]playback.Slide{slideA, slideB})

	f.coord.ShowSlide(0)
	if !f.slideAudio.IsAudioActive() {
		t.Fatal("slide A audio never became active")
	}
	if !f.sequencer.IsActive() {
		t.Fatal("slide A text never loaded")
	}

	f.coord.ShowSlide(1)
	f.engine.Sync()
	if f.sequencer.IsActive() {
		t.Error("sequencer still active after slide change")
	}
	if f.slideAudio.IsAudioActive() {
		t.Error("slide audio still active after slide change")
	}

	// Nothing from slide A may resurface later.
	time.Sleep(60 * time.Millisecond)
	if f.slideAudio.IsAudioActive() || f.sequencer.IsActive() {
		t.Error("slide A state resurfaced after teardown")
	}
}

func TestCoordinatorTextNavigationPrecedence(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.coord.SetPlaylist([]playback.Slide{
		textSlide([]string{"a.png"}),
		{Layers: []string{"b.png"}},
	})
	f.coord.ShowSlide(0)

	// Three sentences: two Next calls stay on the slide.
	f.coord.Next()
	f.coord.Next()
	if got := f.coord.CurrentSlide(); got != 0 {
		t.Fatalf("slide changed during text navigation, at %d", got)
	}
	if !f.sequencer.IsAtEnd() {
		t.Fatal("sequencer should be at the last sentence")
	}

	// At the end of the text the next step changes the slide.
	f.coord.Next()
	if got := f.coord.CurrentSlide(); got != 1 {
		t.Errorf("CurrentSlide = %d, want 1", got)
	}

	// And back: slide B has no text, so Prev returns to slide A.
	f.coord.Prev()
	if got := f.coord.CurrentSlide(); got != 0 {
		t.Errorf("CurrentSlide after Prev = %d, want 0", got)
	}

	texts := f.display.Texts()
	want := []string{"one", "two", "three", "one"}
	if len(texts) != len(want) {
		t.Fatalf("texts %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("texts %v, want %v", texts, want)
		}
	}
}

func TestCoordinatorNextAtLastSlide(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.coord.SetPlaylist([]playback.Slide{{Layers: []string{"a.png"}}})
	f.coord.ShowSlide(0)

	if f.coord.Next() {
		t.Error("Next past the last slide succeeded")
	}
	if f.coord.Prev() {
		t.Error("Prev before the first slide succeeded")
	}
}

func TestCoordinatorAutoAdvanceLoopsToTarget(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.lib.paragraphs["quick"] = &playback.Paragraph{
		Name:      "quick",
		Sentences: []playback.Sentence{{Text: "go", DelaySeconds: 0.03}},
	}
	looping := playback.Slide{
		Layers:      []string{"a.png"},
		LoopToSlide: 2,
		TextOverlay: &playback.TextOverlay{
			ParagraphName:    "quick",
			StartSentence:    1,
			EndSentence:      playback.EndAll(),
			SentenceTiming:   true,
			AutoAdvanceSlide: true,
		},
	}
	f.coord.SetPlaylist([]playback.Slide{looping, {Layers: []string{"b.png"}}})
	f.coord.ShowSlide(0)

	if !waitFor(time.Second, func() { return f.coord.CurrentSlide() == 1 }) {
		t.Fatalf("never looped to slide 2, at %d", f.coord.CurrentSlide())
	}
	got := f.slideChanges()
	if len(got) < 2 || got[len(got)-1] != 1 {
		t.Errorf("slide changes %v, want to end at 1", got)
	}
}

func TestCoordinatorFinishedWithoutLoopStaysPut(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.lib.paragraphs["quick"] = &playback.Paragraph{
		Name:      "quick",
		Sentences: []playback.Sentence{{Text: "go", DelaySeconds: 0.02}},
	}
	terminal := playback.Slide{
		Layers: []string{"a.png"},
		TextOverlay: &playback.TextOverlay{
			ParagraphName:    "quick",
			StartSentence:    1,
			EndSentence:      playback.EndAll(),
			SentenceTiming:   true,
			AutoAdvanceSlide: true,
		},
	}
	f.coord.SetPlaylist([]playback.Slide{terminal, {Layers: []string{"b.png"}}})
	f.coord.ShowSlide(0)

	time.Sleep(80 * time.Millisecond)
	if got := f.coord.CurrentSlide(); got != 0 {
		t.Errorf("slide advanced to %d without loop_to_slide", got)
	}
}

func TestCoordinatorIntroDelayedAudioNeverAdvancesSlide(t *testing.T) {
	f := newCoordinatorFixture(t)
	slide := playback.Slide{
		Layers: []string{"a.png"},
		SlideAudioSettings: playback.SlideAudioSettings{
			AudioProgramName:   "ambient",
			AudioIntroDelayMs:  50,
			AudioProgramVolume: 0.5,
		},
	}
	f.coord.SetPlaylist([]playback.Slide{slide, {Layers: []string{"b.png"}}})
	f.coord.ShowSlide(0)

	// Images show immediately; audio is still in its intro.
	if layers := f.display.LastImages(); len(layers) != 1 || layers[0] != "a.png" {
		t.Fatalf("layers %v, want [a.png]", layers)
	}
	if !f.slideAudio.IsAudioActive() {
		t.Fatal("slide audio should be in intro wait")
	}

	// Audio plays out fully; the slide must never advance on its own.
	if !waitFor(time.Second, func() { return !f.slideAudio.IsAudioActive() }) {
		t.Fatal("audio never completed")
	}
	if got := f.coord.CurrentSlide(); got != 0 {
		t.Errorf("slide advanced to %d on audio completion", got)
	}
}

func TestCoordinatorClear(t *testing.T) {
	f := newCoordinatorFixture(t)
	slide := textSlide([]string{"a.png"})
	slide.SlideAudioSettings = playback.SlideAudioSettings{
		AudioProgramName:   "ambient",
		LoopAudioProgram:   true,
		AudioProgramVolume: 0.5,
	}
	f.coord.SetPlaylist([]playback.Slide{slide})
	f.coord.ShowSlide(0)

	f.coord.Clear()
	f.engine.Sync()
	if f.coord.CurrentSlide() != -1 {
		t.Errorf("CurrentSlide after Clear = %d, want -1", f.coord.CurrentSlide())
	}
	if f.sequencer.IsActive() || f.slideAudio.IsAudioActive() {
		t.Error("players active after Clear")
	}
	if layers := f.display.LastImages(); layers != nil {
		t.Errorf("images after Clear = %v, want nil", layers)
	}
}

func TestCoordinatorBrokenOverlayDegrades(t *testing.T) {
	f := newCoordinatorFixture(t)
	broken := playback.Slide{
		Layers: []string{"a.png"},
		TextOverlay: &playback.TextOverlay{
			ParagraphName: "missing",
			StartSentence: 1,
			EndSentence:   playback.EndAll(),
		},
	}
	f.coord.SetPlaylist([]playback.Slide{broken, {Layers: []string{"b.png"}}})

	if !f.coord.ShowSlide(0) {
		t.Fatal("ShowSlide failed on broken overlay")
	}
	if f.sequencer.IsActive() {
		t.Error("sequencer active with missing paragraph")
	}
	// The slide still navigates normally.
	if !f.coord.Next() {
		t.Error("Next failed on degraded slide")
	}
	if got := f.coord.CurrentSlide(); got != 1 {
		t.Errorf("CurrentSlide = %d, want 1", got)
	}
}
