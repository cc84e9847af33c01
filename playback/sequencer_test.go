package playback_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/alphapresenter/alphapresenter/playback"
)

func sequencerFixture() (*playback.SentenceSequencer, *fakeLibrary, *fakeDisplay) {
	lib := newFakeLibrary()
	lib.paragraphs["intro"] = &playback.Paragraph{
		Name: "intro",
		Sentences: []playback.Sentence{
			{Text: "A", DelaySeconds: 0.03},
			{Text: "B", DelaySeconds: 0.05},
			{Text: "C", DelaySeconds: 0},
		},
	}
	display := &fakeDisplay{}
	return playback.NewSentenceSequencer(lib, display, testLogger()), lib, display
}

func overlaySlide(ov *playback.TextOverlay, duration int) *playback.Slide {
	return &playback.Slide{Duration: duration, TextOverlay: ov}
}

func TestSequencerLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		overlay *playback.TextOverlay
	}{
		{"nil overlay", nil},
		{"missing paragraph", &playback.TextOverlay{
			ParagraphName: "ghost", StartSentence: 1, EndSentence: playback.EndAll(),
		}},
		{"empty paragraph name", &playback.TextOverlay{
			StartSentence: 1, EndSentence: playback.EndAll(),
		}},
		{"start beyond paragraph", &playback.TextOverlay{
			ParagraphName: "intro", StartSentence: 9, EndSentence: playback.EndAll(),
		}},
		{"end before start", &playback.TextOverlay{
			ParagraphName: "intro", StartSentence: 3, EndSentence: playback.EndAt(1),
		}},
		{"end beyond paragraph", &playback.TextOverlay{
			ParagraphName: "intro", StartSentence: 1, EndSentence: playback.EndAt(7),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, _, _ := sequencerFixture()
			ok, _ := seq.Load(overlaySlide(tt.overlay, 5))
			if ok {
				t.Error("Load succeeded, want failure")
			}
			if seq.IsActive() {
				t.Error("sequencer active after failed load")
			}
		})
	}
}

func TestSequencerLoadRequiresReset(t *testing.T) {
	seq, _, _ := sequencerFixture()
	slide := overlaySlide(&playback.TextOverlay{
		ParagraphName: "intro", StartSentence: 1, EndSentence: playback.EndAll(),
	}, 2)

	if ok, delay := seq.Load(slide); !ok || delay != 2*time.Second {
		t.Fatalf("Load = (%v, %v), want (true, 2s)", ok, delay)
	}
	if ok, _ := seq.Load(slide); ok {
		t.Error("second Load without Reset succeeded")
	}
	seq.Reset()
	if ok, _ := seq.Load(slide); !ok {
		t.Error("Load after Reset failed")
	}
}

func TestSequencerManualBounds(t *testing.T) {
	seq, _, display := sequencerFixture()
	ok, _ := seq.Load(overlaySlide(&playback.TextOverlay{
		ParagraphName: "intro", StartSentence: 1, EndSentence: playback.EndAll(),
	}, 0))
	if !ok {
		t.Fatal("load failed")
	}
	seq.ShowFirst()

	if !seq.IsAtStart() {
		t.Error("not at start after ShowFirst")
	}
	if seq.ShowPrev() {
		t.Error("ShowPrev at start returned true")
	}

	if !seq.ShowNext(false) || !seq.ShowNext(false) {
		t.Fatal("ShowNext failed mid-range")
	}
	if !seq.IsAtEnd() {
		t.Error("not at end after walking forward")
	}
	if seq.ShowNext(false) {
		t.Error("ShowNext at end returned true")
	}

	if !seq.ShowPrev() {
		t.Error("ShowPrev mid-range returned false")
	}
	want := []string{"A", "B", "C", "B"}
	got := display.Texts()
	if len(got) != len(want) {
		t.Fatalf("displayed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("displayed %v, want %v", got, want)
		}
	}
}

func TestSequencerTimedWalk(t *testing.T) {
	seq, _, display := sequencerFixture()
	var advances atomic.Int32
	seq.OnAdvanceSlide(func() { advances.Add(1) })

	ok, _ := seq.Load(overlaySlide(&playback.TextOverlay{
		ParagraphName: "intro", StartSentence: 1, EndSentence: playback.EndAll(),
		SentenceTiming: true, AutoAdvanceSlide: true,
	}, 0))
	if !ok {
		t.Fatal("load failed")
	}
	seq.ShowFirst()

	if !waitFor(time.Second, func() { return len(display.Texts()) == 3 }) {
		t.Fatalf("displayed %v, want A, B, C", display.Texts())
	}
	got := display.Texts()
	for i, want := range []string{"A", "B", "C"} {
		if got[i] != want {
			t.Fatalf("displayed %v, want [A B C]", got)
		}
	}

	// C has no delay, so no timer runs and auto-advance never fires.
	time.Sleep(80 * time.Millisecond)
	if n := advances.Load(); n != 0 {
		t.Errorf("advance callback fired %d times, want 0", n)
	}
	if !seq.IsAtEnd() {
		t.Error("sequencer should rest on the last sentence")
	}
}

func TestSequencerAutoAdvanceOnLastTimer(t *testing.T) {
	lib := newFakeLibrary()
	lib.paragraphs["p"] = &playback.Paragraph{
		Name: "p",
		Sentences: []playback.Sentence{
			{Text: "one", DelaySeconds: 0.02},
			{Text: "two", DelaySeconds: 0.02},
		},
	}
	display := &fakeDisplay{}
	seq := playback.NewSentenceSequencer(lib, display, testLogger())
	advanced := make(chan struct{}, 1)
	seq.OnAdvanceSlide(func() { advanced <- struct{}{} })

	ok, _ := seq.Load(overlaySlide(&playback.TextOverlay{
		ParagraphName: "p", StartSentence: 1, EndSentence: playback.EndAll(),
		SentenceTiming: true, AutoAdvanceSlide: true,
	}, 0))
	if !ok {
		t.Fatal("load failed")
	}
	seq.ShowFirst()

	select {
	case <-advanced:
	case <-time.After(time.Second):
		t.Fatal("advance callback never fired")
	}
}

func TestSequencerShowPrevGoesManual(t *testing.T) {
	seq, _, display := sequencerFixture()
	ok, _ := seq.Load(overlaySlide(&playback.TextOverlay{
		ParagraphName: "intro", StartSentence: 1, EndSentence: playback.EndAll(),
		SentenceTiming: true,
	}, 0))
	if !ok {
		t.Fatal("load failed")
	}
	seq.ShowFirst()

	if !waitFor(time.Second, func() { return len(display.Texts()) >= 2 }) {
		t.Fatal("timer never advanced to B")
	}
	if !seq.ShowPrev() {
		t.Fatal("ShowPrev failed")
	}
	count := len(display.Texts())

	// Backward navigation cancels the timer; nothing moves on its own.
	time.Sleep(100 * time.Millisecond)
	if len(display.Texts()) != count {
		t.Errorf("display advanced after ShowPrev: %v", display.Texts())
	}
}

func TestSequencerResetClearsDisplay(t *testing.T) {
	seq, _, display := sequencerFixture()
	ok, _ := seq.Load(overlaySlide(&playback.TextOverlay{
		ParagraphName: "intro", StartSentence: 1, EndSentence: playback.EndAll(),
		SentenceTiming: true,
	}, 0))
	if !ok {
		t.Fatal("load failed")
	}
	seq.ShowFirst()
	seq.Reset()

	if seq.IsActive() {
		t.Error("sequencer active after Reset")
	}
	if display.Clears() == 0 {
		t.Error("Reset did not clear the display")
	}

	// No stale timer callback may display anything after the reset.
	count := len(display.Texts())
	time.Sleep(100 * time.Millisecond)
	if len(display.Texts()) != count {
		t.Errorf("stale timer displayed text after Reset: %v", display.Texts())
	}
}

func TestSequencerSubrange(t *testing.T) {
	seq, _, display := sequencerFixture()
	ok, _ := seq.Load(overlaySlide(&playback.TextOverlay{
		ParagraphName: "intro", StartSentence: 2, EndSentence: playback.EndAt(2),
	}, 0))
	if !ok {
		t.Fatal("load failed")
	}
	seq.ShowFirst()

	if !seq.IsAtStart() || !seq.IsAtEnd() {
		t.Error("single-sentence range should be at start and end at once")
	}
	texts := display.Texts()
	if len(texts) != 1 || texts[0] != "B" {
		t.Errorf("displayed %v, want [B]", texts)
	}
}
